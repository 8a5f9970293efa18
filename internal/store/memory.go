package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/surflog/surf-forecast-service/internal/report"
)

// ReportHistory holds a time-ordered list of prefetched reports for a spot.
type ReportHistory struct {
	Entries []ReportEntry
}

// ReportEntry pairs a report with the time it was fetched, for age-based
// retention.
type ReportEntry struct {
	Report    report.SurfReport
	FetchedAt time.Time
}

// MemoryReports is a concurrency-safe in-memory store of prefetched surf
// reports, keyed by lowercase spot name.
type MemoryReports struct {
	mu   sync.RWMutex
	data map[string]*ReportHistory

	maxHistory int           // max reports kept per spot (<=0 = unlimited)
	maxAge     time.Duration // max report age (0 = unlimited)
	clock      clockwork.Clock
}

// NewMemoryReports creates a report store with the given retention limits.
func NewMemoryReports(maxHistory int, maxAge time.Duration) *MemoryReports {
	return newMemoryReportsWithClock(maxHistory, maxAge, clockwork.NewRealClock())
}

func newMemoryReportsWithClock(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *MemoryReports {
	return &MemoryReports{
		data:       make(map[string]*ReportHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clock,
	}
}

// SaveReport appends a report for a spot and enforces retention.
func (s *MemoryReports) SaveReport(spotName string, rep report.SurfReport) {
	key := strings.ToLower(spotName)

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ReportHistory{}
		s.data[key] = history
	}

	history.Entries = append(history.Entries, ReportEntry{
		Report:    rep,
		FetchedAt: s.clock.Now(),
	})

	if s.maxHistory > 0 && len(history.Entries) > s.maxHistory {
		over := len(history.Entries) - s.maxHistory
		history.Entries = history.Entries[over:]
	}

	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Entries); i++ {
			if !history.Entries[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.Entries = history.Entries[i:]
		}
	}
}

// Latest returns the most recently fetched report for a spot.
func (s *MemoryReports) Latest(spotName string) (report.SurfReport, error) {
	key := strings.ToLower(spotName)

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Entries) == 0 {
		return report.SurfReport{}, ErrNotFound
	}

	latest := history.Entries[len(history.Entries)-1]
	if s.maxAge > 0 && s.clock.Since(latest.FetchedAt) > s.maxAge {
		return report.SurfReport{}, ErrNotFound
	}
	return latest.Report, nil
}

// MemorySessions is an in-memory SessionStore used in tests and in
// deployments without a database.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions []Session
}

// NewMemorySessions creates an empty in-memory session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{}
}

func (s *MemorySessions) SaveSession(_ context.Context, sess Session) error {
	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.mu.Unlock()
	return nil
}

// ListSessions returns all sessions, newest first.
func (s *MemorySessions) ListSessions(_ context.Context) ([]Session, error) {
	s.mu.RLock()
	out := make([]Session, len(s.sessions))
	copy(out, s.sessions)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
