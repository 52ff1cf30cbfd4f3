// Package history persists run outcomes to Postgres for trend analysis
// across CI runs. The sink is write-only telemetry: no run ever reads
// history back, and a failure here never fails the step.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fullsweep/fullsweep/reporting"
	"github.com/fullsweep/fullsweep/types"
)

// Run is one row in the runs table.
type Run struct {
	ID            string
	WorkspaceRoot string
	Status        string
	Total         int
	Passed        int
	Failed        int
	Skipped       int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// TargetResult is one row in the target_results table.
type TargetResult struct {
	RunID    string
	Package  string
	Status   string
	Passed   int
	Failed   int
	Skipped  int
	Runtime  float64
	TimedOut bool
	Message  string
}

type Connection interface {
	EnsureSchema(ctx context.Context) error

	Begin() (Transactor, error)
	Close() error
}

type Transactor interface {
	InsertRun(ctx context.Context, r Run) error
	InsertTargetResult(ctx context.Context, tr TargetResult) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

type PGXDB struct {
	conn *pgxpool.Pool
}

func New(ctx context.Context, uri string) (*PGXDB, error) {
	conn, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	return &PGXDB{conn: conn}, nil
}

// EnsureSchema creates the history tables when they do not exist yet, so a
// fresh database works without a separate migration step.
func (p *PGXDB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	workspace_root TEXT NOT NULL,
	status TEXT NOT NULL,
	total INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS target_results (
	run_id TEXT NOT NULL REFERENCES runs(id),
	package TEXT NOT NULL,
	status TEXT NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	runtime DOUBLE PRECISION NOT NULL,
	timed_out BOOLEAN NOT NULL,
	message TEXT,
	PRIMARY KEY (run_id, package)
)`,
	}

	for i, stmt := range statements {
		if _, err := p.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: statement %d: %w", i, err)
		}
	}
	return nil
}

func (p *PGXDB) Begin() (Transactor, error) {
	tx, err := p.conn.Begin(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &PGXTransactor{tx: tx}, nil
}

func (p *PGXDB) Close() error {
	p.conn.Close()
	return nil
}

type PGXTransactor struct {
	tx  pgx.Tx
	mtx sync.Mutex
}

func (p *PGXTransactor) InsertRun(ctx context.Context, r Run) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	sql := `
INSERT INTO runs (id, workspace_root, status, total, passed, failed, skipped, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING
`

	if _, err := p.tx.Exec(ctx,
		sql,
		r.ID,
		r.WorkspaceRoot,
		r.Status,
		r.Total,
		r.Passed,
		r.Failed,
		r.Skipped,
		r.StartedAt,
		r.FinishedAt,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (p *PGXTransactor) InsertTargetResult(ctx context.Context, tr TargetResult) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	sql := `
INSERT INTO target_results (run_id, package, status, passed, failed, skipped, runtime, timed_out, message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING
`

	if _, err := p.tx.Exec(ctx,
		sql,
		tr.RunID,
		tr.Package,
		tr.Status,
		tr.Passed,
		tr.Failed,
		tr.Skipped,
		tr.Runtime,
		tr.TimedOut,
		tr.Message,
	); err != nil {
		return fmt.Errorf("failed to insert target result: %w", err)
	}
	return nil
}

func (p *PGXTransactor) Commit(ctx context.Context) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.tx.Commit(ctx)
}

// Rollback abandons the transaction. It deliberately ignores the caller's
// context so a cancelled run can still roll back cleanly.
func (p *PGXTransactor) Rollback(ctx context.Context) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if err := p.tx.Rollback(context.Background()); err != nil {
		log.Error("error rolling back transaction", "err", err)
	}
}

// Sink adapts a Connection to the reporting.Sink interface.
type Sink struct {
	db  Connection
	log log.Logger
}

func NewSink(db Connection, logger log.Logger) *Sink {
	if logger == nil {
		logger = log.New()
	}
	return &Sink{db: db, log: logger}
}

var _ reporting.Sink = (*Sink)(nil)

// Record writes one run and its target results in a single transaction.
func (s *Sink) Record(ctx context.Context, summary *reporting.RunSummary) (err error) {
	run := summary.Run

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = tx.InsertRun(ctx, runRow(run)); err != nil {
		return err
	}
	for _, target := range run.Targets {
		if err = tx.InsertTargetResult(ctx, targetRow(run.RunID, target)); err != nil {
			return err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug("Recorded run history", "run_id", run.RunID, "targets", len(run.Targets))
	return nil
}

func runRow(run *types.RunResult) Run {
	return Run{
		ID:            run.RunID,
		WorkspaceRoot: run.WorkspaceRoot,
		Status:        string(run.Status),
		Total:         run.Stats.Total,
		Passed:        run.Stats.Passed,
		Failed:        run.Stats.Failed,
		Skipped:       run.Stats.Skipped,
		StartedAt:     run.Stats.StartTime,
		FinishedAt:    run.Stats.EndTime,
	}
}

func targetRow(runID string, target *types.TargetResult) TargetResult {
	row := TargetResult{
		RunID:    runID,
		Package:  target.Target.Package,
		Status:   string(target.Status),
		Passed:   target.Stats.Passed,
		Failed:   target.Stats.Failed,
		Skipped:  target.Stats.Skipped,
		Runtime:  target.Duration.Seconds(),
		TimedOut: target.TimedOut,
	}
	if target.Error != nil {
		row.Message = target.Error.Error()
	}
	return row
}
