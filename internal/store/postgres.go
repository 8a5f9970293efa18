package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/surflog/surf-forecast-service/internal/report"
)

// Postgres persists sessions and their forecast snapshots in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool and verifies connectivity.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// RunMigrations executes all .sql files in migrationsDir in lexical order.
func (p *Postgres) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".sql") {
			sqlFiles = append(sqlFiles, f.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, name := range sqlFiles {
		content, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := p.db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveSession writes the forecast snapshot, its swells, the session row, and
// a feed post when shared, all in one transaction.
func (p *Postgres) SaveSession(ctx context.Context, s Session) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	forecastID := uuid.NewString()

	sessionStart, err := time.ParseInLocation(report.SessionTimeLayout, s.Forecast.SessionStart, time.UTC)
	if err != nil {
		return fmt.Errorf("parse forecast session start: %w", err)
	}

	var windSpeed, windDirection, windGust, tideHeight, tideType *string
	if s.Forecast.Wind != nil {
		windSpeed = &s.Forecast.Wind.Speed
		windDirection = &s.Forecast.Wind.Direction
		windGust = &s.Forecast.Wind.Gust
	}
	if s.Forecast.Tide != nil {
		tideHeight = &s.Forecast.Tide.Height
		tideType = &s.Forecast.Tide.Type
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO forecasts (
			id, spot_name, region, session_start, size, description, wave_energy,
			rating_value, rating_description,
			wind_speed, wind_direction, wind_gust, tide_height, tide_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		forecastID, s.Forecast.SpotName, s.Forecast.Region, sessionStart,
		s.Forecast.Size, s.Forecast.Description, s.Forecast.WaveEnergy,
		s.Forecast.Rating.Value, s.Forecast.Rating.Description,
		windSpeed, windDirection, windGust, tideHeight, tideType,
	)
	if err != nil {
		return fmt.Errorf("insert forecast: %w", err)
	}

	for i, sw := range s.Forecast.Swells {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO swells (id, forecast_id, position, height_m, period_s, power_kj, direction_deg)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), forecastID, i,
			sw.HeightMeters, sw.PeriodSeconds, sw.PowerKiloJoules, sw.DirectionDegrees,
		)
		if err != nil {
			return fmt.Errorf("insert swell %d: %w", i, err)
		}
	}

	var boardID *string
	if s.BoardID != "" {
		boardID = &s.BoardID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, forecast_id, spot_name, start_time, description, board_id, shared, session_match_forecast, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, forecastID, s.SpotName, s.StartTime, s.Description, boardID,
		s.Shared, s.MatchedForecast, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if s.Shared {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO posts (id, session_id) VALUES ($1, $2)`,
			uuid.NewString(), s.ID,
		)
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListSessions returns all sessions with their forecast snapshots, newest
// first.
func (p *Postgres) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT s.id, s.spot_name, s.start_time, s.description, s.board_id,
		       s.shared, s.session_match_forecast, s.created_at,
		       f.id, f.spot_name, f.region, f.session_start, f.size, f.description,
		       f.wave_energy, f.rating_value, f.rating_description,
		       f.wind_speed, f.wind_direction, f.wind_gust, f.tide_height, f.tide_type
		FROM sessions s
		JOIN forecasts f ON f.id = s.forecast_id
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	forecastIDs := make(map[string]int) // forecast id -> index in sessions

	for rows.Next() {
		var (
			s          Session
			forecastID string
			start      time.Time
			boardID    sql.NullString

			windSpeed, windDir, windGust sql.NullString
			tideHeight, tideType         sql.NullString
		)

		err := rows.Scan(
			&s.ID, &s.SpotName, &s.StartTime, &s.Description, &boardID,
			&s.Shared, &s.MatchedForecast, &s.CreatedAt,
			&forecastID, &s.Forecast.SpotName, &s.Forecast.Region, &start,
			&s.Forecast.Size, &s.Forecast.Description, &s.Forecast.WaveEnergy,
			&s.Forecast.Rating.Value, &s.Forecast.Rating.Description,
			&windSpeed, &windDir, &windGust, &tideHeight, &tideType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		s.BoardID = boardID.String
		s.Forecast.SessionStart = report.FormatSessionStart(start)
		if windSpeed.Valid {
			s.Forecast.Wind = &report.WindReport{
				Speed:     windSpeed.String,
				Direction: windDir.String,
				Gust:      windGust.String,
			}
		}
		if tideType.Valid {
			s.Forecast.Tide = &report.TideReport{
				Height: tideHeight.String,
				Type:   tideType.String,
			}
		}

		forecastIDs[forecastID] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	if err := p.attachSwells(ctx, sessions, forecastIDs); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (p *Postgres) attachSwells(ctx context.Context, sessions []Session, forecastIDs map[string]int) error {
	if len(forecastIDs) == 0 {
		return nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT forecast_id, height_m, period_s, power_kj, direction_deg
		FROM swells
		ORDER BY forecast_id, position`)
	if err != nil {
		return fmt.Errorf("query swells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			forecastID string
			sw         report.SwellComponent
		)
		if err := rows.Scan(&forecastID, &sw.HeightMeters, &sw.PeriodSeconds, &sw.PowerKiloJoules, &sw.DirectionDegrees); err != nil {
			return fmt.Errorf("scan swell: %w", err)
		}
		if idx, ok := forecastIDs[forecastID]; ok {
			sessions[idx].Forecast.Swells = append(sessions[idx].Forecast.Swells, sw)
		}
	}
	return rows.Err()
}
