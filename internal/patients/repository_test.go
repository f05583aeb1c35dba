package patients

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

func TestRepositoryCreateOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	owner := &Owner{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Name:     "Dana Whitfield",
		Email:    "dana@example.com",
	}
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO owners`).
		WithArgs(owner.ID, owner.TenantID, owner.Name, owner.Email, owner.Phone).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	repo := NewRepository(mock)
	require.NoError(t, repo.CreateOwner(context.Background(), owner))
	assert.Equal(t, now, owner.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetOwnerScopedToTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	tenant := uuid.New()

	mock.ExpectQuery(`FROM owners WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(id, tenant).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "name", "email", "phone", "created_at", "updated_at"}))

	repo := NewRepository(mock)
	_, err = repo.GetOwner(context.Background(), id, access.Scope{TenantID: &tenant})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreatePatientMapsMissingFK(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := &Patient{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		ClinicID: uuid.New(),
		OwnerID:  uuid.New(),
		Name:     "Biscuit",
		Species:  "dog",
	}

	mock.ExpectQuery(`INSERT INTO patients`).
		WithArgs(p.ID, p.TenantID, p.ClinicID, p.OwnerID, p.Name, p.Species, p.Breed, p.DateOfBirth, p.WeightKg).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "patients_owner_id_fkey"})

	repo := NewRepository(mock)
	err = repo.CreatePatient(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestRepositoryListPatientsAppliesScopeAndOwnerFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenant, clinic, owner := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM patients WHERE 1=1 AND tenant_id = \$1 AND clinic_id = \$2 AND owner_id = \$3 ORDER BY name LIMIT \$4 OFFSET \$5`).
		WithArgs(tenant, clinic, owner, 50, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "clinic_id", "owner_id", "name", "species", "breed",
			"date_of_birth", "weight_kg", "created_at", "updated_at",
		}).AddRow(uuid.New(), tenant, clinic, owner, "Biscuit", "dog", "beagle", nil, 11.5, now, now))

	repo := NewRepository(mock)
	scope := access.Scope{TenantID: &tenant, ClinicID: &clinic}
	list, err := repo.ListPatients(context.Background(), scope, &owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Biscuit", list[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}
