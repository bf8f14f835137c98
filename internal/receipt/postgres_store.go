package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used by the store. Declared here so
// tests can substitute a mock pool.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists receipts in the relational database. Nested objects
// are stored as JSONB alongside the scalar columns.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore initializes a store backed by a pgx pool.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("receipt: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

const receiptColumns = `id, created_at, requester_context, model_metadata, user_input,
	interpreted_intent, system_instructions, ai_output, retrieval_sources,
	reasoning_summary, decision_confidence, approval_status, review_metadata`

// Create inserts a new receipt row.
func (s *PostgresStore) Create(ctx context.Context, r *DecisionReceipt) error {
	requesterJSON, err := json.Marshal(r.RequesterContext)
	if err != nil {
		return &PersistenceError{Op: "create", Err: fmt.Errorf("encode requester context: %w", err)}
	}
	modelJSON, err := json.Marshal(r.ModelMetadata)
	if err != nil {
		return &PersistenceError{Op: "create", Err: fmt.Errorf("encode model metadata: %w", err)}
	}
	var sourcesJSON []byte
	if len(r.RetrievalSources) > 0 {
		sourcesJSON, err = json.Marshal(r.RetrievalSources)
		if err != nil {
			return &PersistenceError{Op: "create", Err: fmt.Errorf("encode retrieval sources: %w", err)}
		}
	}

	query := `
		INSERT INTO receipts (
			id, created_at, requester_context, model_metadata, user_input,
			interpreted_intent, system_instructions, ai_output, retrieval_sources,
			reasoning_summary, decision_confidence, approval_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.pool.Exec(ctx, query,
		r.ID,
		r.Timestamp,
		requesterJSON,
		modelJSON,
		r.UserInput,
		nullIfEmpty(r.InterpretedIntent),
		r.SystemInstructions,
		r.AIOutput,
		sourcesJSON,
		r.ReasoningSummary,
		r.DecisionConfidence,
		string(r.ApprovalStatus),
	)
	if err != nil {
		return &PersistenceError{Op: "create", Err: err}
	}
	return nil
}

// GetByID fetches a single receipt.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*DecisionReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1`
	r, err := scanReceipt(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	return r, nil
}

// List returns up to limit receipts, most recent first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]DecisionReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + receiptColumns + ` FROM receipts ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()
	return collectReceipts(rows)
}

// ListAll returns every receipt in creation order.
func (s *PostgresStore) ListAll(ctx context.Context) ([]DecisionReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()
	return collectReceipts(rows)
}

// UpdateReview writes the terminal status and review metadata as a single
// conditional update. The WHERE clause on approval_status is what makes two
// concurrent reviews of the same receipt resolve to one winner.
func (s *PostgresStore) UpdateReview(ctx context.Context, id string, status ApprovalStatus, meta ReviewMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return &PersistenceError{Op: "review", Err: fmt.Errorf("encode review metadata: %w", err)}
	}

	query := `
		UPDATE receipts
		SET approval_status = $2, review_metadata = $3
		WHERE id = $1 AND approval_status = 'PENDING'
	`
	tag, err := s.pool.Exec(ctx, query, id, string(status), metaJSON)
	if err != nil {
		return &PersistenceError{Op: "review", Err: err}
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the receipt is unknown or it already left PENDING.
	var current string
	err = s.pool.QueryRow(ctx, `SELECT approval_status FROM receipts WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return &PersistenceError{Op: "review", Err: err}
	}
	return ErrInvalidTransition
}

func scanReceipt(row pgx.Row) (*DecisionReceipt, error) {
	var (
		r         DecisionReceipt
		requester []byte
		model     []byte
		intent    *string
		sources   []byte
		review    []byte
		status    string
	)
	err := row.Scan(
		&r.ID,
		&r.Timestamp,
		&requester,
		&model,
		&r.UserInput,
		&intent,
		&r.SystemInstructions,
		&r.AIOutput,
		&sources,
		&r.ReasoningSummary,
		&r.DecisionConfidence,
		&status,
		&review,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(requester, &r.RequesterContext); err != nil {
		return nil, fmt.Errorf("decode requester context: %w", err)
	}
	if err := json.Unmarshal(model, &r.ModelMetadata); err != nil {
		return nil, fmt.Errorf("decode model metadata: %w", err)
	}
	if intent != nil {
		r.InterpretedIntent = *intent
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &r.RetrievalSources); err != nil {
			return nil, fmt.Errorf("decode retrieval sources: %w", err)
		}
	}
	if len(review) > 0 {
		r.ReviewMetadata = &ReviewMetadata{}
		if err := json.Unmarshal(review, r.ReviewMetadata); err != nil {
			return nil, fmt.Errorf("decode review metadata: %w", err)
		}
	}
	r.ApprovalStatus = ApprovalStatus(status)
	return &r, nil
}

func collectReceipts(rows pgx.Rows) ([]DecisionReceipt, error) {
	var out []DecisionReceipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "scan", Err: err}
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return out, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Store = (*PostgresStore)(nil)
