// Package storage keeps a history of propagation runs in SQLite.
//
// A run record holds the scenario that produced it, as YAML, together with
// the outcome summary and metrics, so any past run can be listed and
// re-executed. Trajectories themselves are not stored.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/orbitprop/internal/config"
	"github.com/san-kum/orbitprop/internal/experiment"
)

var ErrRunNotFound = errors.New("storage: run not found")

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	name                TEXT    NOT NULL,
	created_at          INTEGER NOT NULL,
	epoch               INTEGER NOT NULL,
	final               INTEGER NOT NULL,
	stepper             TEXT    NOT NULL,
	step_size           REAL    NOT NULL,
	steps               INTEGER NOT NULL,
	evaluations         INTEGER NOT NULL,
	condition           TEXT    NOT NULL,
	condition_satisfied INTEGER NOT NULL,
	error               TEXT    NOT NULL,
	metrics             TEXT    NOT NULL,
	scenario            BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);`

// Run is one stored propagation.
type Run struct {
	ID                 int64
	Name               string
	CreatedAt          time.Time
	Epoch              time.Time
	Final              time.Time
	Stepper            string
	StepSize           float64
	Steps              int
	Evaluations        int
	Condition          string
	ConditionSatisfied bool
	Err                string
	Metrics            map[string]float64
	Scenario           []byte
}

// Config decodes the stored scenario.
func (r *Run) Config() (*config.Config, error) {
	return config.Parse(r.Scenario)
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the run database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save records a finished run. res may be nil when the run failed before
// producing a state; runErr is stored as text.
func (s *Store) Save(ctx context.Context, cfg *config.Config, res *experiment.Result, runErr error) (int64, error) {
	if cfg == nil {
		return 0, fmt.Errorf("storage: scenario is required")
	}
	scenario, err := config.Marshal(cfg)
	if err != nil {
		return 0, err
	}

	run := Run{
		Name:     cfg.Name,
		Epoch:    cfg.Epoch,
		Final:    cfg.Epoch,
		Stepper:  cfg.Solver.Stepper,
		StepSize: cfg.Solver.StepSize,
		Metrics:  map[string]float64{},
	}
	if res != nil {
		if res.Final.IsDefined() {
			run.Final = res.Final.Instant()
		}
		run.Steps, run.Evaluations = res.Steps, res.Evaluations
		run.Condition, run.ConditionSatisfied = res.Condition, res.ConditionSatisfied
		for k, v := range res.Metrics {
			run.Metrics[k] = v
		}
	}
	if runErr != nil {
		run.Err = runErr.Error()
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return 0, err
	}

	out, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
		   name, created_at, epoch, final, stepper, step_size, steps, evaluations,
		   condition, condition_satisfied, error, metrics, scenario
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Name,
		s.now().UTC().UnixNano(),
		run.Epoch.UTC().UnixNano(),
		run.Final.UTC().UnixNano(),
		run.Stepper,
		run.StepSize,
		run.Steps,
		run.Evaluations,
		run.Condition,
		run.ConditionSatisfied,
		run.Err,
		string(metrics),
		scenario,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return out.LastInsertId()
}

const columns = `id, name, created_at, epoch, final, stepper, step_size, steps, evaluations,
	condition, condition_satisfied, error, metrics, scenario`

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (s *Store) Load(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return r, err
}

// Delete removes a run. Deleting an unknown run is ErrRunNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	out, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r                     Run
		created, epoch, final int64
		satisfied             bool
		metrics               string
	)
	if err := row.Scan(&r.ID, &r.Name, &created, &epoch, &final, &r.Stepper, &r.StepSize,
		&r.Steps, &r.Evaluations, &r.Condition, &satisfied, &r.Err, &metrics, &r.Scenario); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.Epoch = time.Unix(0, epoch).UTC()
	r.Final = time.Unix(0, final).UTC()
	r.ConditionSatisfied = satisfied
	if err := json.Unmarshal([]byte(metrics), &r.Metrics); err != nil {
		return nil, fmt.Errorf("run %d metrics: %w", r.ID, err)
	}
	return &r, nil
}
