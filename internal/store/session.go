package store

import (
	"context"
	"errors"
	"time"

	"github.com/surflog/surf-forecast-service/internal/report"
)

// ErrNotFound is returned when no data exists for the requested spot or
// session.
var ErrNotFound = errors.New("not found")

// Session is one logged surf session, annotated with the forecast that was
// current when the user paddled out.
type Session struct {
	ID              string            `json:"id"`
	SpotName        string            `json:"spotName"`
	StartTime       time.Time         `json:"startTime"`
	Description     string            `json:"description,omitempty"`
	BoardID         string            `json:"boardId,omitempty"`
	Shared          bool              `json:"shared"`
	MatchedForecast bool              `json:"sessionMatchForecast"`
	Forecast        report.SurfReport `json:"forecast"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// SessionStore persists logged sessions together with their forecast
// snapshot. When a session is shared a feed post is created in the same
// transaction.
type SessionStore interface {
	SaveSession(ctx context.Context, s Session) error
	ListSessions(ctx context.Context) ([]Session, error)
}
