package service

import (
	"context"
	"encoding/json"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/kafka"
	"github.com/ds124wfegd/campusres/pkg/livefeed"
	"github.com/sirupsen/logrus"
)

// ChangePublisher fans change events out to the live feed and, when
// configured, to a Kafka topic. Delivery is best effort: failures are logged
// and never fail the write that produced the event.
type ChangePublisher struct {
	feed livefeed.Publisher
	sink kafka.Producer
}

func NewChangePublisher(feed livefeed.Publisher, sink kafka.Producer) *ChangePublisher {
	return &ChangePublisher{feed: feed, sink: sink}
}

func (p *ChangePublisher) Publish(ctx context.Context, event *entity.ChangeEvent) {
	if p == nil {
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"collection": event.Collection,
		"change":     event.Type,
		"id":         event.ID,
	})

	if p.feed != nil {
		data, err := json.Marshal(event)
		if err != nil {
			log.WithError(err).Error("Failed to encode change event")
			return
		}
		if err := p.feed.Publish(ctx, event.Collection, data); err != nil {
			log.WithError(err).Warn("Failed to publish change event to live feed")
		}
	}

	if p.sink != nil {
		if err := p.sink.SendMessage(ctx, event.Collection+":"+event.ID, event); err != nil {
			log.WithError(err).Warn("Failed to send change event to kafka")
		}
	}
}
