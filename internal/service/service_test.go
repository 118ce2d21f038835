package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ds124wfegd/campusres/internal/database/memory"
	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	tasks []*queue.Task
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, task *queue.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *recordingPublisher) byType(t queue.TaskType) []*queue.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*queue.Task
	for _, task := range p.tasks {
		if task.Type == t {
			out = append(out, task)
		}
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

// failingBookings fails DeleteByResource until healed.
type failingBookings struct {
	repository.BookingRepository
	mu   sync.Mutex
	fail bool
}

func (f *failingBookings) DeleteByResource(ctx context.Context, resourceID string) (int64, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return 0, errors.New("connection reset")
	}
	return f.BookingRepository.DeleteByResource(ctx, resourceID)
}

func (f *failingBookings) heal() {
	f.mu.Lock()
	f.fail = false
	f.mu.Unlock()
}

// listHookResources runs afterList once, right after ListIDs returns.
type listHookResources struct {
	repository.ResourceRepository
	once      sync.Once
	afterList func()
}

func (r *listHookResources) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := r.ResourceRepository.ListIDs(ctx)
	r.once.Do(r.afterList)
	return ids, err
}

type fixture struct {
	repo      *repository.Repository
	tasks     *recordingPublisher
	notifier  *recordingNotifier
	bookings  BookingService
	resources ResourceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, memory.NewRepository(memory.NewStore()))
}

func newFixtureWithRepo(t *testing.T, repo *repository.Repository) *fixture {
	t.Helper()
	tasks := &recordingPublisher{}
	notifier := &recordingNotifier{}
	changes := NewChangePublisher(nil, nil)
	return &fixture{
		repo:      repo,
		tasks:     tasks,
		notifier:  notifier,
		bookings:  NewBookingService(repo, changes, tasks, notifier, nil),
		resources: NewResourceService(repo, changes, tasks, nil, 0),
	}
}

func (f *fixture) createResource(t *testing.T, name string, slots ...string) *entity.Resource {
	t.Helper()
	resource, err := f.resources.CreateResource(context.Background(), &CreateResourceRequest{
		Name:      name,
		Type:      string(entity.ResourceTypeLab),
		Capacity:  30,
		TimeSlots: slots,
	})
	require.NoError(t, err)
	return resource
}

func (f *fixture) book(resourceID, date, slot string, user entity.Identity) (*entity.Booking, error) {
	return f.bookings.CreateBooking(context.Background(), user, &CreateBookingRequest{
		ResourceID: resourceID,
		Date:       date,
		TimeSlot:   slot,
	})
}

var (
	alice = entity.Identity{UID: "uid-alice", Email: "alice@campus.com", DisplayName: "Alice"}
	bob   = entity.Identity{UID: "uid-bob", Email: "bob@campus.com", DisplayName: "Bob"}
)
