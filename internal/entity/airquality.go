package entity

import "time"

// AirQuality is one reading of the air-pollution API.
type AirQuality struct {
	Place      string             `json:"place,omitempty"`
	Lat        float64            `json:"lat"`
	Lon        float64            `json:"lon"`
	Index      int                `json:"aqi"`
	Level      string             `json:"level"`
	Components map[string]float64 `json:"components"`
	MeasuredAt time.Time          `json:"measured_at"`
}

var airQualityLevels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// AirQualityLevel returns the qualitative name of a 1-5 index.
func AirQualityLevel(index int) string {
	if level, ok := airQualityLevels[index]; ok {
		return level
	}
	return "Unknown"
}

type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}
