package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/promokit/adserve/internal/domain"
)

type AdRepo struct {
	db *sql.DB
}

func NewAdRepo(db *sql.DB) *AdRepo { return &AdRepo{db: db} }

func (r *AdRepo) Create(ctx context.Context, a *domain.Ad) error {
	_, err := r.db.ExecContext(ctx, insertAdSQL,
		a.ID, a.Title, a.Description, a.ImageURL, a.TargetURL, string(a.Position), a.Size,
		a.Active, a.Budget, a.StartDate, a.EndDate, a.Priority,
		a.Impressions, a.Clicks, a.Conversions,
		a.DeletedAt, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *AdRepo) GetByID(ctx context.Context, id string) (*domain.Ad, error) {
	row := r.db.QueryRowContext(ctx, getAdSQL, id)
	a, err := scanAd(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("ad not found")
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update rewrites the admin-owned fields. Counters are deliberately excluded:
// they belong to the ingest increment path and the reconciler.
func (r *AdRepo) Update(ctx context.Context, a *domain.Ad) error {
	res, err := r.db.ExecContext(ctx, updateAdSQL,
		a.ID,
		a.Title, a.Description, a.ImageURL, a.TargetURL, string(a.Position), a.Size,
		a.Active, a.Budget, a.StartDate, a.EndDate, a.Priority,
		a.DeletedAt, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound("ad not found")
	}
	return nil
}

// ListEligible returns serve-ready ads for a position at asOf, best priority
// first, creation order breaking ties.
func (r *AdRepo) ListEligible(ctx context.Context, pos domain.Position, asOf time.Time) ([]*domain.Ad, error) {
	rows, err := r.db.QueryContext(ctx, listEligibleAdsSQL, string(pos), asOf.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Ad
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAd(row interface{ Scan(...any) error }) (*domain.Ad, error) {
	var a domain.Ad
	var pos string
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.ImageURL, &a.TargetURL, &pos, &a.Size,
		&a.Active, &a.Budget, &a.StartDate, &a.EndDate, &a.Priority,
		&a.Impressions, &a.Clicks, &a.Conversions,
		&a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Position = domain.Position(pos)
	return &a, nil
}
