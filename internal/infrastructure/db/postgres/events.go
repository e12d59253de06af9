package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/promokit/adserve/internal/domain"
)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const fkViolation = "23503"

// Insert appends one event. Events are immutable after this point; there is no
// update or delete path anywhere in this repo.
func (r *EventRepo) Insert(ctx context.Context, e *domain.AdEvent) error {
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID, e.AdID, string(e.Type), e.IP,
		nullable(e.UserAgent), nullable(e.PageURL), nullable(e.Referer),
		nullable(string(e.Device)), nullable(e.Country), nullable(e.City),
		e.Suspicious, nullable(string(e.FraudReason)), e.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == fkViolation {
			return domain.ErrNotFound("ad not found")
		}
		return domain.ErrTransient("event insert failed: " + err.Error())
	}
	return nil
}

func (r *EventRepo) IncrementCounter(ctx context.Context, adID string, t domain.EventType, now time.Time) error {
	var q string
	switch t {
	case domain.EventImpression:
		q = incrImpressionsSQL
	case domain.EventClick:
		q = incrClicksSQL
	case domain.EventConversion:
		q = incrConversionsSQL
	default:
		return domain.ErrValidation("unknown event type")
	}
	res, err := r.db.ExecContext(ctx, q, adID, now.UTC())
	if err != nil {
		return domain.ErrTransient("counter increment failed: " + err.Error())
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound("ad not found")
	}
	return nil
}

func (r *EventRepo) CountRecent(ctx context.Context, adID, ip string, t domain.EventType, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countRecentSQL, adID, ip, string(t), since.UTC()).Scan(&n)
	return n, err
}

func (r *EventRepo) ExistsRecent(ctx context.Context, adID, ip string, t domain.EventType, since time.Time) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, existsRecentSQL, adID, ip, string(t), since.UTC()).Scan(&ok)
	return ok, err
}

// RecountAd rewrites an ad's counters from the non-suspicious event rows.
func (r *EventRepo) RecountAd(ctx context.Context, adID string) error {
	_, err := r.db.ExecContext(ctx, recountAdSQL, adID)
	return err
}

func (r *EventRepo) ListAdIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listAdIDsSQL)
	if err != nil {
		return nil, err
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

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
