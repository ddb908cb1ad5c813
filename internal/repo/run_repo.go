package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Cascade/internal/domain"
)

const pgUniqueViolation = "23505"

// Пустые строки хранятся как NULL и читаются обратно через COALESCE.
const selectRun = `
	SELECT id, pipeline, status, COALESCE(workflow_status, ''), params,
	       COALESCE(trigger, ''), COALESCE(idempotency_key, ''),
	       started_at, finished_at, COALESCE(error, ''), created_at
	FROM runs`

const selectNodes = `
	SELECT run_id, action, COALESCE(type, ''), state, COALESCE(status, ''),
	       output, started_at, finished_at
	FROM run_nodes
	WHERE run_id = $1
	ORDER BY position`

// RunRepo — RunStore в PostgreSQL (таблицы runs и run_nodes).
type RunRepo struct {
	pool *pgxpool.Pool
}

func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO runs (id, pipeline, status, workflow_status, params, trigger, idempotency_key, created_at)
		VALUES (@id, @pipeline, @status, @workflow_status, @params, @trigger, @key, @created_at)`,
		pgx.NamedArgs{
			"id":              run.ID,
			"pipeline":        run.Pipeline,
			"status":          run.Status,
			"workflow_status": nullString(string(run.WorkflowStatus)),
			"params":          params,
			"trigger":         nullString(string(run.Trigger)),
			"key":             nullString(run.IdempotencyKey),
			"created_at":      run.CreatedAt,
		})
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return ErrAlreadyExists
	case err != nil:
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return r.getOne(ctx, selectRun+` WHERE id = $1`, id)
}

func (r *RunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Run, error) {
	return r.getOne(ctx, selectRun+` WHERE idempotency_key = $1`, key)
}

func (r *RunRepo) getOne(ctx context.Context, query string, arg any) (*domain.Run, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	run, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List — новые runs первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	rows, err := r.pool.Query(ctx, selectRun+`
		WHERE (@pipeline::text IS NULL OR pipeline = @pipeline)
		  AND (@status::text IS NULL OR status = @status)
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{
			"pipeline": nullString(filter.Pipeline),
			"status":   nullString(string(filter.Status)),
			"limit":    filter.limit(),
			"offset":   filter.Offset,
		})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return pgx.CollectRows(rows, scanRun)
}

func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE runs
		SET status = @status, workflow_status = @workflow_status,
		    started_at = @started_at, finished_at = @finished_at, error = @error
		WHERE id = @id`,
		pgx.NamedArgs{
			"id":              run.ID,
			"status":          run.Status,
			"workflow_status": nullString(string(run.WorkflowStatus)),
			"started_at":      run.StartedAt,
			"finished_at":     run.FinishedAt,
			"error":           nullString(run.Error),
		})
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveNodes заменяет итоги узлов run целиком в одной транзакции.
// position сохраняет порядок nodes для ListNodes.
func (r *RunRepo) SaveNodes(ctx context.Context, runID uuid.UUID, nodes []domain.NodeResult) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM run_nodes WHERE run_id = $1`, runID)
	for i, n := range nodes {
		output, err := json.Marshal(n.Output)
		if err != nil {
			return fmt.Errorf("marshal output of %s: %w", n.Action, err)
		}
		batch.Queue(`
			INSERT INTO run_nodes (run_id, position, action, type, state, status, output, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			runID, i, n.Action, nullString(n.Type), n.State, nullString(string(n.Status)),
			output, n.StartedAt, n.FinishedAt)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save run nodes: %w", err)
		}
		return nil
	})
}

func (r *RunRepo) ListNodes(ctx context.Context, runID uuid.UUID) ([]domain.NodeResult, error) {
	rows, err := r.pool.Query(ctx, selectNodes, runID)
	if err != nil {
		return nil, fmt.Errorf("list run nodes: %w", err)
	}
	return pgx.CollectRows(rows, scanNode)
}

func scanRun(row pgx.CollectableRow) (domain.Run, error) {
	var (
		run    domain.Run
		params []byte
	)
	err := row.Scan(&run.ID, &run.Pipeline, &run.Status, &run.WorkflowStatus, &params,
		&run.Trigger, &run.IdempotencyKey, &run.StartedAt, &run.FinishedAt, &run.Error, &run.CreatedAt)
	if err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}
	if err := unmarshalJSONB(params, &run.Params); err != nil {
		return run, fmt.Errorf("unmarshal params: %w", err)
	}
	return run, nil
}

func scanNode(row pgx.CollectableRow) (domain.NodeResult, error) {
	var (
		n      domain.NodeResult
		output []byte
	)
	err := row.Scan(&n.RunID, &n.Action, &n.Type, &n.State, &n.Status,
		&output, &n.StartedAt, &n.FinishedAt)
	if err != nil {
		return n, fmt.Errorf("scan run node: %w", err)
	}
	if err := unmarshalJSONB(output, &n.Output); err != nil {
		return n, fmt.Errorf("unmarshal output of %s: %w", n.Action, err)
	}
	return n, nil
}

// unmarshalJSONB оставляет v нулевым для NULL.
func unmarshalJSONB(raw []byte, v any) error {
	if raw == nil {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
