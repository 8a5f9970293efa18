package surfline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Forecast feed endpoints under /kbyg/spots/forecasts. All three are fetched
// for a 1-day window at 1-hour intervals.
const (
	wavePath  = "/kbyg/spots/forecasts/wave"
	windPath  = "/kbyg/spots/forecasts/wind"
	tidesPath = "/kbyg/spots/forecasts/tides"
)

// Swell is one directional wave-energy component within a wave sample,
// ordered by Surfline-assigned significance (primary swell first).
type Swell struct {
	Height    float64 `json:"height"`
	Period    float64 `json:"period"`
	Direction float64 `json:"direction"`
	Power     float64 `json:"power"`
}

// WaveSample is a single hourly entry from the wave feed.
type WaveSample struct {
	Timestamp int64 `json:"timestamp"`
	Surf      struct {
		Min           float64 `json:"min"`
		Max           float64 `json:"max"`
		HumanRelation string  `json:"humanRelation"`
	} `json:"surf"`
	Power  float64 `json:"power"`
	Swells []Swell `json:"swells"`

	// Rating is Surfline's own quality score when the spot has one.
	Rating *ProviderRating `json:"rating,omitempty"`
}

// ProviderRating is Surfline's own 1-5 score attached to a wave sample.
type ProviderRating struct {
	Value float64 `json:"value"`
}

// WindSample is a single hourly entry from the wind feed.
type WindSample struct {
	Timestamp     int64   `json:"timestamp"`
	Speed         float64 `json:"speed"`
	Gust          float64 `json:"gust"`
	DirectionType string  `json:"directionType"`
}

// TideSample is a single hourly entry from the tides feed.
type TideSample struct {
	Timestamp int64   `json:"timestamp"`
	Height    float64 `json:"height"`
	Type      string  `json:"type"`
}

// Wave fetches the 1-day hourly wave series for a spot.
func (c *Client) Wave(ctx context.Context, spotID string) ([]WaveSample, error) {
	body, err := c.get(ctx, "wave", wavePath, forecastQuery(spotID))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			Wave []WaveSample `json:"wave"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode wave response: %w", err)
	}
	return payload.Data.Wave, nil
}

// Wind fetches the 1-day hourly wind series for a spot.
func (c *Client) Wind(ctx context.Context, spotID string) ([]WindSample, error) {
	body, err := c.get(ctx, "wind", windPath, forecastQuery(spotID))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			Wind []WindSample `json:"wind"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode wind response: %w", err)
	}
	return payload.Data.Wind, nil
}

// Tides fetches the 1-day tide series for a spot.
func (c *Client) Tides(ctx context.Context, spotID string) ([]TideSample, error) {
	body, err := c.get(ctx, "tides", tidesPath, forecastQuery(spotID))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			Tides []TideSample `json:"tides"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode tides response: %w", err)
	}
	return payload.Data.Tides, nil
}

func forecastQuery(spotID string) url.Values {
	return url.Values{
		"spotId":        {spotID},
		"days":          {"1"},
		"intervalHours": {"1"},
	}
}
