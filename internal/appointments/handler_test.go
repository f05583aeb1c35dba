package appointments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/auth"
)

func serveWithPrincipal(h *Handler, p *access.Principal, req *http.Request) *httptest.ResponseRecorder {
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreate(t *testing.T) {
	fx := newFixture(t)
	handler := NewHandler(fx.service, nil)
	p := fx.principal(access.RoleFrontDesk)

	body, err := json.Marshal(fx.request("09:00", "09:30"))
	require.NoError(t, err)

	rec := serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var appt Appointment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&appt))
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, 30, appt.DurationMinutes)
}

func TestHandlerCreateConflictIs409(t *testing.T) {
	fx := newFixture(t)
	handler := NewHandler(fx.service, nil)
	p := fx.principal(access.RoleFrontDesk)

	first, _ := json.Marshal(fx.request("09:00", "09:30"))
	rec := serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(first)))
	require.Equal(t, http.StatusCreated, rec.Code)

	second, _ := json.Marshal(fx.request("09:15", "09:45"))
	rec = serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(second)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerCreateInvalidWindowIs400(t *testing.T) {
	fx := newFixture(t)
	handler := NewHandler(fx.service, nil)
	p := fx.principal(access.RoleFrontDesk)

	body, _ := json.Marshal(fx.request("10:00", "09:00"))
	rec := serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRequiresSession(t *testing.T) {
	fx := newFixture(t)
	handler := NewHandler(fx.service, nil)

	body, _ := json.Marshal(fx.request("09:00", "09:30"))
	rec := serveWithPrincipal(handler, nil, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerGetOutOfScopeIs404(t *testing.T) {
	fx := newFixture(t)
	handler := NewHandler(fx.service, nil)
	p := fx.principal(access.RoleFrontDesk)

	body, _ := json.Marshal(fx.request("09:00", "09:30"))
	rec := serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var appt Appointment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&appt))

	outsider := fx.principal(access.RoleFrontDesk)
	other := newFixture(t)
	outsider.TenantID = other.tenantID

	rec = serveWithPrincipal(handler, outsider, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/%s", appt.ID), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerListFiltersParse(t *testing.T) {
	fx := newFixture(t)
	handler := NewHandler(fx.service, nil)
	p := fx.principal(access.RoleFrontDesk)

	body, _ := json.Marshal(fx.request("09:00", "09:30"))
	rec := serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	url := fmt.Sprintf("/?provider_id=%s&status=scheduled&limit=10", fx.provider)
	rec = serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListAppointmentsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)

	rec = serveWithPrincipal(handler, p, httptest.NewRequest(http.MethodGet, "/?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
