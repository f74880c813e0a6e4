// internal/membership/ledger.go
package membership

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clubhouse/pkg/txn"
)

// LedgerStore is the durable, append-only history of member↔membership
// links. Only end_date and reason_to_end are ever backfilled on an
// existing row.
type LedgerStore interface {
	OpenLink(ctx context.Context, membershipID, memberID uuid.UUID, startDate time.Time) (*MembershipLink, error)
	CloseOpenLinks(ctx context.Context, membershipID uuid.UUID, effectiveDate time.Time, reason EndReason) (int64, error)
	FindLatestClosedByReason(ctx context.Context, membershipID uuid.UUID, reason EndReason) ([]MembershipLink, error)
	FindOpenByMembership(ctx context.Context, membershipID uuid.UUID) ([]MembershipLink, error)
}

// PostgresLedgerStore implements LedgerStore on membership_links. Methods
// run against the transaction carried by ctx when there is one.
type PostgresLedgerStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db:     db,
		tracer: otel.Tracer("clubhouse/ledger"),
	}
}

// OpenLink inserts a new open row. The partial unique index on
// (membership_id, member_id) WHERE end_date IS NULL rejects a second open
// link for the same pair.
func (s *PostgresLedgerStore) OpenLink(ctx context.Context, membershipID, memberID uuid.UUID, startDate time.Time) (*MembershipLink, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.open_link",
		trace.WithAttributes(
			attribute.String("membership.id", membershipID.String()),
			attribute.String("member.id", memberID.String()),
		),
	)
	defer span.End()

	link := &MembershipLink{
		ID:           uuid.New(),
		MembershipID: membershipID,
		MemberID:     memberID,
		StartDate:    startDate,
	}

	q := txn.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO membership_links (id, membership_id, member_id, start_date)
		VALUES ($1, $2, $3, $4)
	`, link.ID, link.MembershipID, link.MemberID, link.StartDate)
	if err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}

	return link, nil
}

// CloseOpenLinks backfills end_date and reason_to_end on every open row of
// the membership. Closing zero rows is a no-op, which is what makes
// repeated application of the same effect safe.
func (s *PostgresLedgerStore) CloseOpenLinks(ctx context.Context, membershipID uuid.UUID, effectiveDate time.Time, reason EndReason) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.close_open_links",
		trace.WithAttributes(
			attribute.String("membership.id", membershipID.String()),
			attribute.String("close.reason", string(reason)),
		),
	)
	defer span.End()

	q := txn.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE membership_links
		SET end_date = $2, reason_to_end = $3
		WHERE membership_id = $1 AND end_date IS NULL
	`, membershipID, effectiveDate, reason)
	if err != nil {
		return 0, fmt.Errorf("close open links: %w", err)
	}

	closed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	span.SetAttributes(attribute.Int64("links.closed", closed))
	return closed, nil
}

// FindLatestClosedByReason returns, per member, the most recent row closed
// with the given reason, but only when no row of that member carries a
// later end_date for any reason and the member holds no open link. A member
// suspended and later disaffiliated is excluded here, which is what keeps
// reactivation from resurrecting them.
func (s *PostgresLedgerStore) FindLatestClosedByReason(ctx context.Context, membershipID uuid.UUID, reason EndReason) ([]MembershipLink, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.find_latest_closed_by_reason",
		trace.WithAttributes(
			attribute.String("membership.id", membershipID.String()),
			attribute.String("close.reason", string(reason)),
		),
	)
	defer span.End()

	q := txn.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT ON (l.member_id)
		       l.id, l.membership_id, l.member_id, l.start_date, l.end_date, l.reason_to_end
		FROM membership_links l
		WHERE l.membership_id = $1
		  AND l.end_date IS NOT NULL
		  AND l.reason_to_end = $2
		  AND NOT EXISTS (
		        SELECT 1 FROM membership_links later
		        WHERE later.membership_id = l.membership_id
		          AND later.member_id = l.member_id
		          AND later.end_date IS NOT NULL
		          AND later.end_date > l.end_date
		  )
		  AND NOT EXISTS (
		        SELECT 1 FROM membership_links open
		        WHERE open.membership_id = l.membership_id
		          AND open.member_id = l.member_id
		          AND open.end_date IS NULL
		  )
		ORDER BY l.member_id, l.end_date DESC
	`, membershipID, reason)
	if err != nil {
		return nil, fmt.Errorf("query latest closed links: %w", err)
	}
	defer rows.Close()

	links, err := scanLinks(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("links.found", len(links)))
	return links, nil
}

// FindOpenByMembership returns the current roster: every open link of the
// membership.
func (s *PostgresLedgerStore) FindOpenByMembership(ctx context.Context, membershipID uuid.UUID) ([]MembershipLink, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.find_open",
		trace.WithAttributes(attribute.String("membership.id", membershipID.String())),
	)
	defer span.End()

	q := txn.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, membership_id, member_id, start_date, end_date, reason_to_end
		FROM membership_links
		WHERE membership_id = $1 AND end_date IS NULL
		ORDER BY start_date, member_id
	`, membershipID)
	if err != nil {
		return nil, fmt.Errorf("query open links: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]MembershipLink, error) {
	var links []MembershipLink
	for rows.Next() {
		var link MembershipLink
		var endDate sql.NullTime
		var reason sql.NullString

		err := rows.Scan(
			&link.ID,
			&link.MembershipID,
			&link.MemberID,
			&link.StartDate,
			&endDate,
			&reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}

		if endDate.Valid {
			t := endDate.Time
			link.EndDate = &t
		}
		if reason.Valid {
			r := EndReason(reason.String)
			link.ReasonToEnd = &r
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}
