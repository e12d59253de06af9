package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/promokit/adserve/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatsRepo_DailySeries(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStatsRepo(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"day", "event_type", "suspicious", "count"}).
		AddRow(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "impression", false, int64(100)).
		AddRow(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "click", true, int64(7))

	mock.ExpectQuery("SELECT (.+) FROM ad_events").
		WithArgs(from, to).
		WillReturnRows(rows)

	out, err := repo.DailySeries(context.Background(), from, to)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, domain.EventImpression, out[0].Type)
	assert.False(t, out[0].Suspicious)
	assert.Equal(t, int64(100), out[0].Count)
	assert.True(t, out[1].Suspicious)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_ByDevice(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStatsRepo(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"device", "event_type", "suspicious", "count"}).
		AddRow("mobile", "impression", false, int64(60)).
		AddRow("", "impression", false, int64(3))

	mock.ExpectQuery("SELECT (.+) FROM ad_events").
		WithArgs(from, to).
		WillReturnRows(rows)

	out, err := repo.ByDevice(context.Background(), from, to)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "mobile", out[0].Key)
	assert.Equal(t, "", out[1].Key, "NULL devices fold to the empty key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_TopAds(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStatsRepo(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"ad_id", "title", "impressions", "clicks", "conversions", "suspicious"}).
		AddRow("ad_1", "Spring Sale", int64(500), int64(25), int64(3), int64(40))

	mock.ExpectQuery("SELECT (.+) FROM ad_events e").
		WithArgs(from, to).
		WillReturnRows(rows)

	out, err := repo.TopAds(context.Background(), from, to)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "ad_1", out[0].AdID)
	assert.Equal(t, "Spring Sale", out[0].Title)
	assert.Equal(t, int64(500), out[0].Impressions)
	assert.Equal(t, int64(40), out[0].Suspicious)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_AdSeries(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStatsRepo(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"day", "event_type", "suspicious", "count"}).
		AddRow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "conversion", false, int64(2))

	mock.ExpectQuery("SELECT (.+) FROM ad_events").
		WithArgs("ad_1", from, to).
		WillReturnRows(rows)

	out, err := repo.AdSeries(context.Background(), "ad_1", from, to)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, domain.EventConversion, out[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
