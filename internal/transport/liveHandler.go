package transport

import (
	"fmt"
	"strings"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/internal/transport/middleware"
	"github.com/ds124wfegd/campusres/pkg/livefeed"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var liveCollections = map[string]bool{
	entity.CollectionResources: true,
	entity.CollectionBookings:  true,
}

type LiveHandler struct {
	hub *livefeed.Hub
}

func NewLiveHandler(hub *livefeed.Hub) *LiveHandler {
	return &LiveHandler{hub: hub}
}

// Subscribe upgrades to a websocket that streams change events. The optional
// collection query narrows the stream, e.g. ?collection=bookings.
func (h *LiveHandler) Subscribe(c *gin.Context) {
	var topics []string
	for _, name := range strings.Split(c.Query("collection"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !liveCollections[name] {
			writeError(c, fmt.Errorf("%w: unknown collection %q", entity.ErrInvalidInput, name))
			return
		}
		topics = append(topics, name)
	}

	log := logrus.WithField("topics", topics)
	if session, ok := middleware.SessionFrom(c); ok {
		log = log.WithField("uid", session.UID)
	}

	if err := livefeed.Serve(h.hub, c.Writer, c.Request, topics...); err != nil {
		log.WithError(err).Warn("Live feed upgrade failed")
		return
	}
	log.Debug("Live feed subscriber connected")
}
