// Package record stores per-frame readings in a local sqlite database,
// grouped into sessions. It records outputs only; tracker state is never
// restored from it.
package record

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"balancecam/config"
	"balancecam/pipeline"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Global debug function for record package
var debugMsgFunc func(string, string)

// SetDebugFunction allows main package to provide debug function
func SetDebugFunction(fn func(string, string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Store is a readings database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// One writer; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// migrateUp applies the embedded migrations.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db as well.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	version, _, err := m.Version()
	if err == nil {
		debugMsg("RECORD", fmt.Sprintf("Schema at version %d", version))
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Session is one recording run.
type Session struct {
	ID        uuid.UUID
	Source    string
	StartedAt time.Time
}

// StartSession registers a new session for source, keeping the config it
// ran with.
func (s *Store) StartSession(ctx context.Context, source string, cfg config.Config) (Session, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode config: %w", err)
	}

	sess := Session{ID: uuid.New(), Source: source, StartedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, source, config_json, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID.String(), source, string(cfgJSON), sess.StartedAt)
	if err != nil {
		return Session{}, fmt.Errorf("failed to insert session: %w", err)
	}
	debugMsg("RECORD", fmt.Sprintf("Session %s started for %s", sess.ID, source))
	return sess, nil
}

// Sessions lists sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, source, started_at FROM sessions ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var id string
		var sess Session
		if err := rows.Scan(&id, &sess.Source, &sess.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if sess.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad session id %q: %w", id, err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SessionConfig returns the config a session ran with.
func (s *Store) SessionConfig(ctx context.Context, id uuid.UUID) (config.Config, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM sessions WHERE session_id = ?`, id.String()).Scan(&raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return config.Config{}, fmt.Errorf("failed to decode session config: %w", err)
	}
	return cfg, nil
}

// Record stores one reading and its mark lines atomically.
func (s *Store) Record(ctx context.Context, session uuid.UUID, r pipeline.Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var beamIndex, beamTop sql.NullInt64
	if r.BeamFound {
		beamIndex = sql.NullInt64{Int64: int64(r.Beam.Index), Valid: true}
		beamTop = sql.NullInt64{Int64: int64(r.Beam.Rect.Min.Y), Valid: true}
	}

	st := r.Fiducial.State
	_, err = tx.ExecContext(ctx,
		`INSERT INTO readings (session_id, frame, mode, fiducial_x, fiducial_y, searched, beam_index, beam_top)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.String(), r.Frame, st.Mode.String(), st.Position.X, st.Position.Y,
		r.Fiducial.Searched, beamIndex, beamTop)
	if err != nil {
		return fmt.Errorf("failed to insert reading %d: %w", r.Frame, err)
	}

	for _, line := range r.Marks {
		if !line.Valid {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO mark_lines (session_id, frame, name, point_x, point_y, angle_deg, fresh)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			session.String(), r.Frame, line.Name, line.Point.X, line.Point.Y,
			line.Angle()*180/math.Pi, line.Fresh)
		if err != nil {
			return fmt.Errorf("failed to insert %s line for frame %d: %w", line.Name, r.Frame, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reading %d: %w", r.Frame, err)
	}
	return nil
}

// Row is a stored reading.
type Row struct {
	Frame     int
	Mode      string
	X, Y      int
	Searched  bool
	BeamFound bool
	BeamIndex int
	BeamTop   int
	Marks     map[string]MarkRow
}

// MarkRow is a stored mark line.
type MarkRow struct {
	X, Y     float64
	AngleDeg float64
	Fresh    bool
}

// Readings returns the readings of a session in frame order.
func (s *Store) Readings(ctx context.Context, session uuid.UUID) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame, mode, fiducial_x, fiducial_y, searched, beam_index, beam_top
		 FROM readings WHERE session_id = ? ORDER BY frame`, session.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []Row
	index := make(map[int]int)
	for rows.Next() {
		var r Row
		var beamIndex, beamTop sql.NullInt64
		if err := rows.Scan(&r.Frame, &r.Mode, &r.X, &r.Y, &r.Searched, &beamIndex, &beamTop); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.BeamFound = beamIndex.Valid
		r.BeamIndex = int(beamIndex.Int64)
		r.BeamTop = int(beamTop.Int64)
		index[r.Frame] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := s.db.QueryContext(ctx,
		`SELECT frame, name, point_x, point_y, angle_deg, fresh
		 FROM mark_lines WHERE session_id = ?`, session.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query mark lines: %w", err)
	}
	defer lines.Close()

	for lines.Next() {
		var frame int
		var name string
		var m MarkRow
		if err := lines.Scan(&frame, &name, &m.X, &m.Y, &m.AngleDeg, &m.Fresh); err != nil {
			return nil, fmt.Errorf("failed to scan mark line: %w", err)
		}
		i, ok := index[frame]
		if !ok {
			continue
		}
		if out[i].Marks == nil {
			out[i].Marks = make(map[string]MarkRow)
		}
		out[i].Marks[name] = m
	}
	return out, lines.Err()
}
