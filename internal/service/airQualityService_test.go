package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/airquality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	index int
	err   error
	calls int
}

func (f *fakeReader) Current(_ context.Context, lat, lon float64) (*airquality.Reading, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &airquality.Reading{
		Lat:        lat,
		Lon:        lon,
		Index:      f.index,
		Components: map[string]float64{"pm2_5": 12.5},
		MeasuredAt: time.Unix(1700000000, 0).UTC(),
	}, nil
}

func TestAirQuality(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{index: 4}
	svc := NewAirQualityService(reader, []entity.Place{{Name: "Lahore", Lat: 31.5204, Lon: 74.3587}})

	aq, err := svc.ForPlace(ctx, "lahore")
	require.NoError(t, err)
	assert.Equal(t, "Lahore", aq.Place)
	assert.Equal(t, 4, aq.Index)
	assert.Equal(t, "Poor", aq.Level)
	assert.InDelta(t, 12.5, aq.Components["pm2_5"], 0.001)

	_, err = svc.ForPlace(ctx, "Atlantis")
	assert.ErrorIs(t, err, ErrUnknownPlace)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.Current(ctx, 91, 0)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
	assert.Equal(t, 1, reader.calls)

	reader.err = errors.New("status 500")
	_, err = svc.Current(ctx, 24.86, 67.0)
	assert.ErrorIs(t, err, entity.ErrExternalService)
	assert.Equal(t, 2, reader.calls)
}
