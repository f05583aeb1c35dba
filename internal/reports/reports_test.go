package reports

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborvet/vetpms/internal/access"
)

func TestClinicDashboardAggregates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	tenant := uuid.New()
	clinic := uuid.New()
	scope := access.Scope{TenantID: &tenant}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments WHERE clinic_id = \$1 AND start_time >= \$2 AND start_time < \$3 AND tenant_id = \$4$`).
		WithArgs(clinic, start, end, tenant).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointments .* AND status = \$5`).
		WithArgs(clinic, start, end, tenant, "no-show").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT patient_id\) FROM appointments`).
		WithArgs(clinic, start, end, tenant).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(28))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_cents\), 0\) FROM invoices`).
		WithArgs(clinic, start, end, "paid", tenant).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(215000))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_cents\), 0\) FROM invoices`).
		WithArgs(clinic, start, end, "issued", tenant).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(34000))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM inventory_items`).
		WithArgs(clinic, tenant).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	svc := NewService(db)
	stats, err := svc.ClinicDashboard(context.Background(), scope, clinic, start, end)
	require.NoError(t, err)

	assert.Equal(t, int64(40), stats.AppointmentsTotal)
	assert.Equal(t, int64(4), stats.AppointmentsNoShow)
	assert.Equal(t, int64(28), stats.PatientsSeen)
	assert.Equal(t, int64(215000), stats.RevenueCents)
	assert.Equal(t, int64(34000), stats.OutstandingCents)
	assert.Equal(t, int64(3), stats.LowStockItems)
	assert.InDelta(t, 10.0, stats.NoShowRatePct, 0.001)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClinicDashboardUnscopedForSystemAdmin(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	clinic := uuid.New()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// No tenant filter appears in any query.
	mock.ExpectQuery(`FROM appointments WHERE clinic_id = \$1 AND start_time >= \$2 AND start_time < \$3$`).
		WithArgs(clinic, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`AND status = \$4$`).
		WithArgs(clinic, start, end, "no-show").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`COUNT\(DISTINCT patient_id\)`).
		WithArgs(clinic, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM invoices`).
		WithArgs(clinic, start, end, "paid").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
	mock.ExpectQuery(`FROM invoices`).
		WithArgs(clinic, start, end, "issued").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0))
	mock.ExpectQuery(`FROM inventory_items`).
		WithArgs(clinic).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	svc := NewService(db)
	stats, err := svc.ClinicDashboard(context.Background(), access.Scope{}, clinic, start, end)
	require.NoError(t, err)
	assert.Zero(t, stats.NoShowRatePct)

	require.NoError(t, mock.ExpectationsWereMet())
}
