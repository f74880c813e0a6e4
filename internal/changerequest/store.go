// internal/changerequest/store.go
package changerequest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clubhouse/pkg/txn"
)

// Store persists change requests and guards their single resolution.
type Store interface {
	Create(ctx context.Context, req *ChangeRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChangeRequest, error)
	// Resolve transitions a PENDING request to a terminal state. It fails
	// with ErrRequestNotFound when the row is absent and ErrRequestNotPending
	// when it was already resolved; the guard makes resolution exactly-once
	// under concurrent callers.
	Resolve(ctx context.Context, id uuid.UUID, state RequestState, notes string, resolvedAt time.Time) (*ChangeRequest, error)
	// MarkApplied claims the at-most-once effect marker. It reports false
	// when another transaction already claimed it.
	MarkApplied(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context, filter Filter) ([]ChangeRequest, error)
	// ListDue returns approved requests whose effect is due and not yet
	// applied.
	ListDue(ctx context.Context, now time.Time) ([]ChangeRequest, error)
}

const requestColumns = `
	id, membership_id, type, request_state, made_by_a_member,
	member_reason, manager_notes, submission_date, resolution_date,
	change_start_date, change_end_date, effect_applied_at
`

// PostgresStore implements Store on change_requests.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("clubhouse/changerequest"),
	}
}

func (s *PostgresStore) Create(ctx context.Context, req *ChangeRequest) error {
	ctx, span := s.tracer.Start(ctx, "changerequest.create",
		trace.WithAttributes(
			attribute.String("membership.id", req.MembershipID.String()),
			attribute.String("request.type", string(req.Type)),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return err
	}

	q := txn.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO change_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		req.ID,
		req.MembershipID,
		req.Type,
		req.RequestState,
		req.MadeByAMember,
		nullString(req.MemberReason),
		nullString(req.ManagerNotes),
		req.SubmissionDate,
		req.ResolutionDate,
		req.ChangeStartDate,
		req.ChangeEndDate,
		req.EffectAppliedAt,
	)
	if err != nil {
		return fmt.Errorf("insert change request: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*ChangeRequest, error) {
	q := txn.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM change_requests
		WHERE id = $1
	`, id)

	req, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("get change request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, id uuid.UUID, state RequestState, notes string, resolvedAt time.Time) (*ChangeRequest, error) {
	ctx, span := s.tracer.Start(ctx, "changerequest.resolve",
		trace.WithAttributes(
			attribute.String("request.id", id.String()),
			attribute.String("request.outcome", string(state)),
		),
	)
	defer span.End()

	q := txn.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		UPDATE change_requests
		SET request_state = $2, manager_notes = $3, resolution_date = $4
		WHERE id = $1 AND request_state = $5
		RETURNING `+requestColumns+`
	`, id, state, nullString(notes), resolvedAt, StatePending)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		// The row is either absent or already resolved; look again to
		// tell the two apart.
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrRequestNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("resolve change request: %w", err)
	}

	return req, nil
}

func (s *PostgresStore) MarkApplied(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	q := txn.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE change_requests
		SET effect_applied_at = $2
		WHERE id = $1 AND effect_applied_at IS NULL
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark change request applied: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]ChangeRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM change_requests
		WHERE 1=1
	`
	var args []interface{}

	if filter.MembershipID != nil {
		args = append(args, *filter.MembershipID)
		query += ` AND membership_id = $` + strconv.Itoa(len(args))
	}
	if filter.State != nil {
		args = append(args, *filter.State)
		query += ` AND request_state = $` + strconv.Itoa(len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY submission_date DESC`

	q := txn.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]ChangeRequest, error) {
	q := txn.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM change_requests
		WHERE request_state = $1
		  AND effect_applied_at IS NULL
		  AND change_start_date <= $2
		ORDER BY change_start_date
	`, StateApproved, now)
	if err != nil {
		return nil, fmt.Errorf("list due change requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*ChangeRequest, error) {
	req := &ChangeRequest{}
	var memberReason, managerNotes sql.NullString
	var resolutionDate, changeEndDate, effectAppliedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.MembershipID,
		&req.Type,
		&req.RequestState,
		&req.MadeByAMember,
		&memberReason,
		&managerNotes,
		&req.SubmissionDate,
		&resolutionDate,
		&req.ChangeStartDate,
		&changeEndDate,
		&effectAppliedAt,
	)
	if err != nil {
		return nil, err
	}

	req.MemberReason = memberReason.String
	req.ManagerNotes = managerNotes.String
	if resolutionDate.Valid {
		t := resolutionDate.Time
		req.ResolutionDate = &t
	}
	if changeEndDate.Valid {
		t := changeEndDate.Time
		req.ChangeEndDate = &t
	}
	if effectAppliedAt.Valid {
		t := effectAppliedAt.Time
		req.EffectAppliedAt = &t
	}

	return req, nil
}

func scanRequests(rows *sql.Rows) ([]ChangeRequest, error) {
	var requests []ChangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change requests: %w", err)
	}
	return requests, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
