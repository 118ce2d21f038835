package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/airquality"
)

var ErrUnknownPlace = errors.New("unknown place")

// AirQualityReader fetches the current reading for a coordinate.
type AirQualityReader interface {
	Current(ctx context.Context, lat, lon float64) (*airquality.Reading, error)
}

type airQualityService struct {
	reader AirQualityReader
	places []entity.Place
}

func NewAirQualityService(reader AirQualityReader, places []entity.Place) AirQualityService {
	return &airQualityService{reader: reader, places: places}
}

func (s *airQualityService) Current(ctx context.Context, lat, lon float64) (*entity.AirQuality, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", entity.ErrInvalidInput)
	}

	reading, err := s.reader.Current(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrExternalService, err)
	}

	return &entity.AirQuality{
		Lat:        reading.Lat,
		Lon:        reading.Lon,
		Index:      reading.Index,
		Level:      entity.AirQualityLevel(reading.Index),
		Components: reading.Components,
		MeasuredAt: reading.MeasuredAt,
	}, nil
}

func (s *airQualityService) ForPlace(ctx context.Context, name string) (*entity.AirQuality, error) {
	for _, p := range s.places {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			aq, err := s.Current(ctx, p.Lat, p.Lon)
			if err != nil {
				return nil, err
			}
			aq.Place = p.Name
			return aq, nil
		}
	}
	return nil, fmt.Errorf("%w: %w %q", entity.ErrInvalidInput, ErrUnknownPlace, name)
}

func (s *airQualityService) Places() []entity.Place {
	return s.places
}
