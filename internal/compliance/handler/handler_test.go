package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/internal/compliance/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/testutil"
)

type stubService struct {
	status *models.Status
}

func (s stubService) GetComplianceStatus(_ context.Context, account id.AccountID) (*models.Status, error) {
	if s.status == nil || s.status.Account != account {
		return nil, dErrors.New(dErrors.CodeComplianceViolation, "account is not registered")
	}
	return s.status, nil
}

func TestHandleGetStatus(t *testing.T) {
	limits, _ := models.LimitsFor(2)
	svc := stubService{status: &models.Status{
		Account:            "alice",
		Tier:               2,
		Limits:             limits,
		DailyUsed:          1_000_000,
		Quota:              models.Quota{DailyRemaining: 4_000_000, MonthlyRemaining: 49_000_000},
		ExchangesPermitted: true,
	}}
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).Register(r)

	t.Run("owner reads own status", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodGet, "/v1/accounts/alice/compliance", nil), "alice")
		rr := testutil.DoRequest(r, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		got := testutil.Decode[models.Status](t, rr)
		assert.Equal(t, int64(4_000_000), got.Quota.DailyRemaining)
		assert.Equal(t, int64(5_000_000), got.Limits.DailyLimit)
		assert.True(t, got.ExchangesPermitted)
	})

	t.Run("admin reads any status", func(t *testing.T) {
		req := testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodGet, "/v1/accounts/alice/compliance", nil), "ops-1")
		assert.Equal(t, http.StatusOK, testutil.DoRequest(r, req).Code)
	})

	t.Run("other customers are refused", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodGet, "/v1/accounts/alice/compliance", nil), "bob")
		testutil.AssertStatusAndError(t, testutil.DoRequest(r, req), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("unregistered account", func(t *testing.T) {
		req := testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodGet, "/v1/accounts/ghost/compliance", nil), "ops-1")
		testutil.AssertStatusAndError(t, testutil.DoRequest(r, req), http.StatusForbidden, "compliance_violation")
	})
}
