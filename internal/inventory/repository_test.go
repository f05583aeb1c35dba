package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
)

func itemRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "tenant_id", "clinic_id", "sku", "name", "category",
		"quantity", "reorder_level", "unit_cents", "created_at", "updated_at",
	})
}

func TestRepositoryCreateMapsDuplicateSKU(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	item := &Item{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		ClinicID: uuid.New(),
		SKU:      "AMOX-250",
		Name:     "Amoxicillin 250mg",
		Quantity: 40,
	}

	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WithArgs(item.ID, item.TenantID, item.ClinicID, item.SKU, item.Name, item.Category,
			item.Quantity, item.ReorderLevel, item.UnitCents).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "inventory_items_clinic_id_sku_key"})

	repo := NewRepository(mock)
	err = repo.Create(context.Background(), item)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestAdjustStockGuardsAgainstNegative(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, tenant := uuid.New(), uuid.New()
	scope := access.Scope{TenantID: &tenant}
	now := time.Now().UTC()

	// The guarded UPDATE matches nothing because 3 - 5 < 0.
	mock.ExpectQuery(`UPDATE inventory_items\s+SET quantity = quantity \+ \$2, updated_at = now\(\)\s+WHERE id = \$1 AND quantity \+ \$2 >= 0 AND tenant_id = \$3`).
		WithArgs(id, -5, tenant).
		WillReturnRows(itemRows())

	// The follow-up read shows the item exists with 3 on hand.
	mock.ExpectQuery(`FROM inventory_items WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(id, tenant).
		WillReturnRows(itemRows().AddRow(id, tenant, uuid.New(), "AMOX-250", "Amoxicillin 250mg", "", 3, 10, int64(1200), now, now))

	repo := NewRepository(mock)
	_, err = repo.AdjustStock(context.Background(), id, scope, -5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "below zero")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockAppliesDelta(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, tenant := uuid.New(), uuid.New()
	scope := access.Scope{TenantID: &tenant}
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE inventory_items`).
		WithArgs(id, -2, tenant).
		WillReturnRows(itemRows().AddRow(id, tenant, uuid.New(), "AMOX-250", "Amoxicillin 250mg", "", 1, 10, int64(1200), now, now))

	repo := NewRepository(mock)
	item, err := repo.AdjustStock(context.Background(), id, scope, -2)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.True(t, item.NeedsReorder())
}

func TestAdjustStockMissingItemIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, tenant := uuid.New(), uuid.New()
	scope := access.Scope{TenantID: &tenant}

	mock.ExpectQuery(`UPDATE inventory_items`).
		WithArgs(id, 4, tenant).
		WillReturnRows(itemRows())
	mock.ExpectQuery(`FROM inventory_items WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(id, tenant).
		WillReturnRows(itemRows())

	repo := NewRepository(mock)
	_, err = repo.AdjustStock(context.Background(), id, scope, 4)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListLowStockFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenant := uuid.New()
	scope := access.Scope{TenantID: &tenant}
	now := time.Now().UTC()

	mock.ExpectQuery(`AND reorder_level > 0 AND quantity <= reorder_level ORDER BY name`).
		WithArgs(tenant, 50, 0).
		WillReturnRows(itemRows().AddRow(uuid.New(), tenant, uuid.New(), "AMOX-250", "Amoxicillin 250mg", "", 2, 10, int64(1200), now, now))

	repo := NewRepository(mock)
	list, err := repo.List(context.Background(), scope, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].NeedsReorder())
}
