// Package reports serves clinic dashboard metrics. Queries run over the
// stdlib *sql.DB opened from the pgx pool, keeping the aggregate read path
// separate from the transactional repositories.
package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
)

// DashboardStats is one clinic's activity summary for a period.
type DashboardStats struct {
	ClinicID           uuid.UUID `json:"clinic_id"`
	PeriodStart        string    `json:"period_start"`
	PeriodEnd          string    `json:"period_end"`
	AppointmentsTotal  int64     `json:"appointments_total"`
	AppointmentsNoShow int64     `json:"appointments_no_show"`
	PatientsSeen       int64     `json:"patients_seen"`
	RevenueCents       int64     `json:"revenue_cents"`
	OutstandingCents   int64     `json:"outstanding_cents"`
	LowStockItems      int64     `json:"low_stock_items"`
	NoShowRatePct      float64   `json:"no_show_rate_pct"`
}

// Service computes dashboard statistics.
type Service struct {
	db *sql.DB
}

// NewService wires the reports service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ClinicDashboard aggregates activity for one clinic over [start, end). The
// scope is applied to every query so a clinic-bound principal can never see
// another clinic's numbers.
func (s *Service) ClinicDashboard(ctx context.Context, scope access.Scope, clinicID uuid.UUID, start, end time.Time) (*DashboardStats, error) {
	if s.db == nil {
		return nil, fmt.Errorf("reports: database not configured")
	}

	stats := &DashboardStats{
		ClinicID:    clinicID,
		PeriodStart: start.UTC().Format(time.RFC3339),
		PeriodEnd:   end.UTC().Format(time.RFC3339),
	}

	var err error
	stats.AppointmentsTotal, err = s.countAppointments(ctx, scope, clinicID, start, end, "")
	if err != nil {
		return nil, fmt.Errorf("reports: count appointments: %w", err)
	}
	stats.AppointmentsNoShow, err = s.countAppointments(ctx, scope, clinicID, start, end, "no-show")
	if err != nil {
		return nil, fmt.Errorf("reports: count no-shows: %w", err)
	}
	stats.PatientsSeen, err = s.countPatientsSeen(ctx, scope, clinicID, start, end)
	if err != nil {
		return nil, fmt.Errorf("reports: count patients seen: %w", err)
	}
	stats.RevenueCents, err = s.sumInvoices(ctx, scope, clinicID, start, end, "paid")
	if err != nil {
		return nil, fmt.Errorf("reports: sum revenue: %w", err)
	}
	stats.OutstandingCents, err = s.sumInvoices(ctx, scope, clinicID, start, end, "issued")
	if err != nil {
		return nil, fmt.Errorf("reports: sum outstanding: %w", err)
	}
	stats.LowStockItems, err = s.countLowStock(ctx, scope, clinicID)
	if err != nil {
		return nil, fmt.Errorf("reports: count low stock: %w", err)
	}

	if stats.AppointmentsTotal > 0 {
		stats.NoShowRatePct = float64(stats.AppointmentsNoShow) / float64(stats.AppointmentsTotal) * 100.0
	}
	return stats, nil
}

func (s *Service) countAppointments(ctx context.Context, scope access.Scope, clinicID uuid.UUID, start, end time.Time, status string) (int64, error) {
	query := `SELECT COUNT(*) FROM appointments WHERE clinic_id = $1 AND start_time >= $2 AND start_time < $3`
	args := []any{clinicID, start, end}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *Service) countPatientsSeen(ctx context.Context, scope access.Scope, clinicID uuid.UUID, start, end time.Time) (int64, error) {
	query := `SELECT COUNT(DISTINCT patient_id) FROM appointments WHERE clinic_id = $1 AND start_time >= $2 AND start_time < $3 AND status = 'completed'`
	args := []any{clinicID, start, end}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *Service) sumInvoices(ctx context.Context, scope access.Scope, clinicID uuid.UUID, start, end time.Time, status string) (int64, error) {
	query := `SELECT COALESCE(SUM(total_cents), 0) FROM invoices WHERE clinic_id = $1 AND created_at >= $2 AND created_at < $3 AND status = $4`
	args := []any{clinicID, start, end, status}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	var sum int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&sum)
	return sum, err
}

func (s *Service) countLowStock(ctx context.Context, scope access.Scope, clinicID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM inventory_items WHERE clinic_id = $1 AND reorder_level > 0 AND quantity <= reorder_level`
	args := []any{clinicID}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
