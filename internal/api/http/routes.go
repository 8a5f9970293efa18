package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/surflog/surf-forecast-service/internal/report"
	"github.com/surflog/surf-forecast-service/internal/store"
	"github.com/surflog/surf-forecast-service/internal/surfline"
)

var validate = validator.New()

// ForecastService is the slice of the report service the HTTP layer needs.
type ForecastService interface {
	GetSurfReport(ctx context.Context, sessionStart, spotName string) (*report.SurfReport, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service ForecastService, sessions store.SessionStore, reports *store.MemoryReports) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		req, err := parseForecastQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rep, err := service.GetSurfReport(c.Context(), req.sessionStart, req.SpotName)
		if err != nil {
			return forecastError(err)
		}

		return c.JSON(fiber.Map{"report": rep})
	})

	v1.Get("/forecast/latest", func(c *fiber.Ctx) error {
		spotName := c.Query("spotName")
		if spotName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "spotName query parameter is required")
		}

		rep, err := reports.Latest(spotName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no prefetched forecast for this spot")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read prefetched forecast")
		}

		return c.JSON(fiber.Map{"report": rep})
	})

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		var body sessionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		start, err := parseTime(body.StartTimeSession)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sessionStart := report.FormatSessionStart(start)

		rep, err := service.GetSurfReport(c.Context(), sessionStart, body.SpotName)
		if err != nil {
			return forecastError(err)
		}

		sess := store.Session{
			ID:              uuid.NewString(),
			SpotName:        rep.SpotName,
			StartTime:       start.UTC(),
			Description:     body.Description,
			BoardID:         body.BoardID,
			Shared:          body.ShareInFeed,
			MatchedForecast: body.SessionMatchForecast,
			Forecast:        *rep,
			CreatedAt:       time.Now().UTC(),
		}

		if err := sessions.SaveSession(c.Context(), sess); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save session")
		}

		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	v1.Get("/sessions", func(c *fiber.Ctx) error {
		list, err := sessions.ListSessions(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list sessions")
		}
		return c.JSON(fiber.Map{"sessions": list})
	})
}

// forecastError maps core errors to user-facing HTTP responses.
func forecastError(err error) error {
	switch {
	case errors.Is(err, surfline.ErrSpotNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no surf spot found; check the spelling or try a nearby spot")
	case errors.Is(err, report.ErrNoForecast):
		return fiber.NewError(fiber.StatusNotFound, "forecast unavailable for that time")
	default:
		return fiber.NewError(fiber.StatusBadGateway, "could not fetch forecast")
	}
}

// forecastQuery holds query parameters for the forecast preview endpoint.
type forecastQuery struct {
	SpotName         string `validate:"required"`
	StartTimeSession string `validate:"required"`

	// sessionStart is the derived UTC alignment key.
	sessionStart string
}

func parseForecastQuery(c *fiber.Ctx) (forecastQuery, error) {
	q := forecastQuery{
		SpotName:         c.Query("spotName"),
		StartTimeSession: c.Query("startTimeSession"),
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}

	start, err := parseTime(q.StartTimeSession)
	if err != nil {
		return q, err
	}
	q.sessionStart = report.FormatSessionStart(start)
	return q, nil
}

// sessionRequest is the body for logging a session.
type sessionRequest struct {
	SpotName             string `json:"spotName" validate:"required"`
	StartTimeSession     string `json:"startTimeSession" validate:"required"`
	Description          string `json:"description"`
	BoardID              string `json:"boardId"`
	ShareInFeed          bool   `json:"shareInFeed"`
	SessionMatchForecast bool   `json:"sessionMatchForecast"`
}

// parseTime accepts RFC3339 or Unix seconds. The instant is unambiguous;
// all alignment downstream happens in UTC.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
