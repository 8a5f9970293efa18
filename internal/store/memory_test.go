package store

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surflog/surf-forecast-service/internal/report"
)

func sampleReport(sessionStart string) report.SurfReport {
	return report.SurfReport{
		SpotName:     "Popoyo",
		SessionStart: sessionStart,
		Size:         "Surf: 1 - 2",
		Rating:       report.Rating{Value: 3, Description: "FAIR"},
	}
}

func TestMemoryReports_LatestWins(t *testing.T) {
	s := NewMemoryReports(10, 0)

	s.SaveReport("Popoyo", sampleReport("2025-11-03 08:00"))
	s.SaveReport("Popoyo", sampleReport("2025-11-03 09:00"))

	got, err := s.Latest("popoyo")
	require.NoError(t, err)
	assert.Equal(t, "2025-11-03 09:00", got.SessionStart)
}

func TestMemoryReports_KeyIsCaseInsensitive(t *testing.T) {
	s := NewMemoryReports(10, 0)
	s.SaveReport("POPOYO", sampleReport("2025-11-03 08:00"))

	_, err := s.Latest("Popoyo")
	assert.NoError(t, err)
}

func TestMemoryReports_UnknownSpot(t *testing.T) {
	s := NewMemoryReports(10, 0)
	_, err := s.Latest("atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReports_CountRetention(t *testing.T) {
	s := NewMemoryReports(2, 0)

	s.SaveReport("Popoyo", sampleReport("2025-11-03 07:00"))
	s.SaveReport("Popoyo", sampleReport("2025-11-03 08:00"))
	s.SaveReport("Popoyo", sampleReport("2025-11-03 09:00"))

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Len(t, s.data["popoyo"].Entries, 2)
	assert.Equal(t, "2025-11-03 08:00", s.data["popoyo"].Entries[0].Report.SessionStart)
}

func TestMemoryReports_AgeRetention(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newMemoryReportsWithClock(0, time.Hour, clock)

	s.SaveReport("Popoyo", sampleReport("2025-11-03 08:00"))
	clock.Advance(2 * time.Hour)

	_, err := s.Latest("Popoyo")
	assert.ErrorIs(t, err, ErrNotFound, "stale prefetched report must not be served")

	// A fresh save evicts the stale entry.
	s.SaveReport("Popoyo", sampleReport("2025-11-03 11:00"))
	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Len(t, s.data["popoyo"].Entries, 1)
}

func TestMemorySessions_SaveAndListNewestFirst(t *testing.T) {
	s := NewMemorySessions()
	ctx := context.Background()

	older := Session{ID: "a", SpotName: "Popoyo", CreatedAt: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)}
	newer := Session{ID: "b", SpotName: "Trestles", CreatedAt: time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, s.SaveSession(ctx, older))
	require.NoError(t, s.SaveSession(ctx, newer))

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
}
