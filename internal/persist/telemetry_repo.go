package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// StepSample is one frame's stepper state.
type StepSample struct {
	Frame       uint64
	Mode        string
	Target      time.Duration
	Index       int
	FrameSteps  int
	GlobalSteps uint64
	Accumulator time.Duration
	AvgStepCost time.Duration
	RunningSlow bool
	RunningFast bool
	Bodies      int
	Colliders   int
	Joints      int
}

// TimestepChange records the stepper moving to another timestep.
type TimestepChange struct {
	Frame uint64
	From  time.Duration
	To    time.Duration
	Index int
}

// TelemetryRepo writes stepper telemetry for one run.
type TelemetryRepo struct {
	db    *DB
	runID string
}

func NewTelemetryRepo(db *DB, runID string) *TelemetryRepo {
	return &TelemetryRepo{db: db, runID: runID}
}

// RunID identifies the rows written by this repo.
func (r *TelemetryRepo) RunID() string { return r.runID }

// WriteSamples inserts a batch of samples in a single transaction.
func (r *TelemetryRepo) WriteSamples(ctx context.Context, samples []StepSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("samples begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range samples {
		batch.Queue(
			`INSERT INTO stepper_samples (run_id, frame, mode, target_ns, ladder_index, frame_steps,
			        global_steps, accumulator_ns, avg_cost_ns, running_slow, running_fast,
			        bodies, colliders, joints)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			r.runID, int64(s.Frame), s.Mode, s.Target.Nanoseconds(), s.Index, s.FrameSteps,
			int64(s.GlobalSteps), s.Accumulator.Nanoseconds(), s.AvgStepCost.Nanoseconds(),
			s.RunningSlow, s.RunningFast, s.Bodies, s.Colliders, s.Joints,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("samples insert: %w", err)
	}
	return tx.Commit(ctx)
}

// WriteTimestepChanges inserts timestep changes in a single transaction.
func (r *TelemetryRepo) WriteTimestepChanges(ctx context.Context, changes []TimestepChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("timestep changes begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range changes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO timestep_changes (run_id, frame, from_ns, to_ns, ladder_index)
			 VALUES ($1, $2, $3, $4, $5)`,
			r.runID, int64(c.Frame), c.From.Nanoseconds(), c.To.Nanoseconds(), c.Index,
		); err != nil {
			return fmt.Errorf("timestep change insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}
