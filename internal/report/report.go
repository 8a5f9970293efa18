package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/surflog/surf-forecast-service/internal/observability"
	"github.com/surflog/surf-forecast-service/internal/surfline"
)

// SessionTimeLayout is the minute-precision UTC key used to align a
// requested session start with provider time series. Both the request key
// and the formatted provider timestamps use this layout in UTC, so alignment
// is timezone-consistent end to end.
const SessionTimeLayout = "2006-01-02 15:04"

// ErrNoForecast is returned when the spot resolved but the wave series has
// no sample at the requested session start.
var ErrNoForecast = errors.New("no forecast available for requested time")

// SwellComponent is one directional wave-energy component of the report,
// primary swell first.
type SwellComponent struct {
	HeightMeters     float64 `json:"heightMeters"`
	PeriodSeconds    float64 `json:"periodSeconds"`
	PowerKiloJoules  float64 `json:"powerKiloJoules"`
	DirectionDegrees float64 `json:"directionDegrees"`
}

// WindReport is the human-readable wind block of a report.
type WindReport struct {
	Speed     string `json:"speed"`
	Direction string `json:"direction"`
	Gust      string `json:"gust,omitempty"`
}

// TideReport is the human-readable tide block of a report.
type TideReport struct {
	Height string `json:"height"`
	Type   string `json:"type"`
}

// SurfReport is the normalized forecast for one spot at one session start.
// SessionStart is always byte-identical to the key the caller requested; it
// is the join key when a session is later persisted against this report.
type SurfReport struct {
	SpotName     string           `json:"spotName"`
	Region       string           `json:"region"`
	SessionStart string           `json:"sessionStart"`
	Size         string           `json:"size"`
	Description  string           `json:"description"`
	WaveEnergy   string           `json:"waveEnergy"`
	Rating       Rating           `json:"rating"`
	Swells       []SwellComponent `json:"swells"`
	Wind         *WindReport      `json:"wind,omitempty"`
	Tide         *TideReport      `json:"tide,omitempty"`
}

// SpotResolver resolves a free-text spot name to a Surfline reference.
type SpotResolver interface {
	ResolveSpot(ctx context.Context, name string) (surfline.SpotReference, error)
}

// ForecastFetcher provides the three hourly forecast feeds for a spot.
type ForecastFetcher interface {
	Wave(ctx context.Context, spotID string) ([]surfline.WaveSample, error)
	Wind(ctx context.Context, spotID string) ([]surfline.WindSample, error)
	Tides(ctx context.Context, spotID string) ([]surfline.TideSample, error)
}

// Service assembles surf reports from resolved spots and forecast feeds.
type Service struct {
	resolver  SpotResolver
	forecasts ForecastFetcher
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService creates a report service.
func NewService(resolver SpotResolver, forecasts ForecastFetcher, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		resolver:  resolver,
		forecasts: forecasts,
		metrics:   metrics,
		logger:    logger,
	}
}

// GetSurfReport resolves spotName, fetches wave, wind, and tide data
// concurrently, aligns all three series to sessionStart ("YYYY-MM-DD HH:MM",
// UTC), and assembles the report. The wave match is mandatory; wind and tide
// are omitted from the report when no sample aligns. If any of the three
// fetches fails the whole aggregation fails.
func (s *Service) GetSurfReport(ctx context.Context, sessionStart, spotName string) (*SurfReport, error) {
	if _, err := time.Parse(SessionTimeLayout, sessionStart); err != nil {
		return nil, fmt.Errorf("invalid session start %q: %w", sessionStart, err)
	}

	spot, err := s.resolver.ResolveSpot(ctx, spotName)
	if err != nil {
		s.metrics.ReportsFailed.Inc()
		return nil, err
	}

	var (
		waves []surfline.WaveSample
		winds []surfline.WindSample
		tides []surfline.TideSample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		waves, err = s.forecasts.Wave(gctx, spot.SpotID)
		return err
	})
	g.Go(func() error {
		var err error
		winds, err = s.forecasts.Wind(gctx, spot.SpotID)
		return err
	})
	g.Go(func() error {
		var err error
		tides, err = s.forecasts.Tides(gctx, spot.SpotID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.ReportsFailed.Inc()
		return nil, fmt.Errorf("fetch forecast for %s: %w", spot.SpotName, err)
	}

	wave := matchWave(waves, sessionStart)
	if wave == nil {
		s.metrics.ReportsFailed.Inc()
		s.logger.Info("no wave sample at requested time", "spot", spot.SpotName, "session_start", sessionStart)
		return nil, ErrNoForecast
	}
	wind := matchWind(winds, sessionStart)
	tide := matchTide(tides, sessionStart)

	rating := ComputeRating(*wave, wind, tide, spot.SpotName)

	rep := &SurfReport{
		SpotName:     spot.SpotName,
		Region:       spot.Region,
		SessionStart: sessionStart,
		Size:         fmt.Sprintf("Surf: %g - %g", wave.Surf.Min, wave.Surf.Max),
		Description:  wave.Surf.HumanRelation,
		WaveEnergy:   fmt.Sprintf("%.0fkJ", wave.Power),
		Rating:       rating,
		Swells:       buildSwells(wave.Swells),
	}

	if wind != nil {
		rep.Wind = &WindReport{
			Speed:     fmt.Sprintf("%.0f km/h", wind.Speed),
			Direction: wind.DirectionType,
			Gust:      fmt.Sprintf("%.0f km/h", wind.Gust),
		}
	}
	if tide != nil {
		rep.Tide = &TideReport{
			Height: fmt.Sprintf("%.2f ft", tide.Height),
			Type:   tide.Type,
		}
	}

	s.metrics.ReportsBuilt.Inc()
	s.logger.Info("built surf report",
		"spot", spot.SpotName,
		"session_start", sessionStart,
		"rating", rating.Value,
		"size", rep.Size,
	)

	return rep, nil
}

// FormatSessionStart renders an instant as the UTC alignment key.
func FormatSessionStart(t time.Time) string {
	return t.UTC().Format(SessionTimeLayout)
}

func matchWave(samples []surfline.WaveSample, sessionStart string) *surfline.WaveSample {
	for i := range samples {
		if FormatSessionStart(time.Unix(samples[i].Timestamp, 0)) == sessionStart {
			return &samples[i]
		}
	}
	return nil
}

func matchWind(samples []surfline.WindSample, sessionStart string) *surfline.WindSample {
	for i := range samples {
		if FormatSessionStart(time.Unix(samples[i].Timestamp, 0)) == sessionStart {
			return &samples[i]
		}
	}
	return nil
}

func matchTide(samples []surfline.TideSample, sessionStart string) *surfline.TideSample {
	for i := range samples {
		if FormatSessionStart(time.Unix(samples[i].Timestamp, 0)) == sessionStart {
			return &samples[i]
		}
	}
	return nil
}

// buildSwells keeps at most the three most significant swells, in provider
// order.
func buildSwells(swells []surfline.Swell) []SwellComponent {
	n := len(swells)
	if n > 3 {
		n = 3
	}
	out := make([]SwellComponent, 0, n)
	for _, s := range swells[:n] {
		out = append(out, SwellComponent{
			HeightMeters:     s.Height,
			PeriodSeconds:    s.Period,
			PowerKiloJoules:  math.Round(s.Power),
			DirectionDegrees: s.Direction,
		})
	}
	return out
}
