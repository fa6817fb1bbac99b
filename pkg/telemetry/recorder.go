// Package telemetry stores scheduler events in a sqlite database.
package telemetry

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gwillem/robodog/pkg/control"
	"github.com/gwillem/robodog/pkg/monitoring"
)

// schema.sql defines the runs and events tables.
//
//go:embed schema.sql
var schemaSQL string

// Recorder writes events on a background goroutine so Record never blocks
// the scheduler. Events arriving while the queue is full are dropped.
type Recorder struct {
	db    *sql.DB
	runID string

	mu      sync.Mutex
	closed  bool
	queue   chan control.Event
	done    chan struct{}
	dropped atomic.Uint64
}

// Row is a stored event.
type Row struct {
	Time     time.Time
	Kind     string
	Mode     string
	Detail   string
	Distance *float64
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// Open opens or creates the database at path and starts a new run.
func Open(path, notes string) (*Recorder, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	if _, err := db.Exec(`INSERT INTO runs (run_id, started_ns, notes) VALUES (?, ?, ?)`,
		runID, time.Now().UnixNano(), notes); err != nil {
		db.Close()
		return nil, fmt.Errorf("start run: %w", err)
	}

	r := &Recorder{
		db:    db,
		runID: runID,
		queue: make(chan control.Event, 256),
		done:  make(chan struct{}),
	}
	go r.writer()
	return r, nil
}

// Load opens an existing database for queries only. Events recorded through
// it are dropped.
func Load(path string) (*Recorder, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	close(done)
	return &Recorder{db: db, done: done}, nil
}

// RunID returns the id of the current run, empty for a loaded database.
func (r *Recorder) RunID() string {
	return r.runID
}

// Record implements control.Recorder. Events recorded after Flush are
// dropped.
func (r *Recorder) Record(e control.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.queue == nil {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) writer() {
	defer close(r.done)
	for e := range r.queue {
		if err := r.insert(e); err != nil {
			monitoring.Logf("telemetry: %v", err)
		}
	}
}

func (r *Recorder) insert(e control.Event) error {
	var dist any
	if e.Distance.OK {
		dist = e.Distance.Distance
	}
	_, err := r.db.Exec(`
		INSERT INTO events (run_id, time_ns, kind, mode, detail, distance_cm)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.runID, e.Time.UnixNano(), e.Kind, e.Mode.String(), e.Detail, dist)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Kind, err)
	}
	return nil
}

// Events returns the events of a run in insertion order. An empty kind
// matches every kind.
func (r *Recorder) Events(runID, kind string) ([]Row, error) {
	query := `SELECT time_ns, kind, mode, detail, distance_cm FROM events WHERE run_id = ?`
	args := []any{runID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			ns   int64
			row  Row
			dist sql.NullFloat64
		)
		if err := rows.Scan(&ns, &row.Kind, &row.Mode, &row.Detail, &dist); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		row.Time = time.Unix(0, ns)
		if dist.Valid {
			d := dist.Float64
			row.Distance = &d
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Runs returns all run ids, oldest first.
func (r *Recorder) Runs() ([]string, error) {
	rows, err := r.db.Query(`SELECT run_id FROM runs ORDER BY started_ns`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Flush waits until every queued event has been written, then stops the
// writer.
func (r *Recorder) Flush() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		if r.queue != nil {
			close(r.queue)
		}
	}
	r.mu.Unlock()
	<-r.done
}

// Close flushes pending events and closes the database.
func (r *Recorder) Close() error {
	r.Flush()
	return r.db.Close()
}
