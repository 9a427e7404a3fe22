package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/requestcontext"
	"custody/pkg/testutil"
)

// fakeService records the last request and answers from a fixed table.
type fakeService struct {
	ops        map[id.OperationID]*models.Operation
	deposit    models.DepositRequest
	withdrawal models.WithdrawalRequest
	exchange   models.ExchangeRequest
	failWith   error
	expiredAge time.Duration
	paused     bool
}

func newFakeService() *fakeService {
	return &fakeService{ops: make(map[id.OperationID]*models.Operation)}
}

func (f *fakeService) record(kind id.OperationKind, account id.AccountID, amount int64) (*models.Operation, error) {
	op := models.NewOperation(kind, account, amount, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	f.ops[op.ID] = op
	if f.failWith != nil {
		_ = op.Fail(f.failWith, models.PendingNone, op.CreatedAt)
		return op, f.failWith
	}
	_ = op.Transition(models.StatusProcessing, op.CreatedAt)
	_ = op.Transition(models.StatusCompleted, op.CreatedAt)
	return op, nil
}

func (f *fakeService) ExecuteBitcoinDeposit(_ context.Context, req models.DepositRequest) (*models.Operation, error) {
	f.deposit = req
	return f.record(id.OperationDeposit, req.Account, req.Amount)
}

func (f *fakeService) ExecuteTokenWithdrawal(_ context.Context, req models.WithdrawalRequest) (*models.Operation, error) {
	f.withdrawal = req
	return f.record(id.OperationWithdrawal, req.Account, req.Amount)
}

func (f *fakeService) ExecuteCrossTokenExchange(_ context.Context, req models.ExchangeRequest) (*models.Operation, error) {
	f.exchange = req
	return f.record(id.OperationExchange, req.Account, req.Amount)
}

func (f *fakeService) GetOperationStatus(_ context.Context, opID id.OperationID) (*models.Operation, error) {
	op, ok := f.ops[opID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "operation not found")
	}
	return op, nil
}

func (f *fakeService) ListOperations(_ context.Context, account id.AccountID) ([]models.Operation, error) {
	var out []models.Operation
	for _, op := range f.ops {
		if op.Account == account {
			out = append(out, *op)
		}
	}
	return out, nil
}

func (f *fakeService) RetryPendingStep(ctx context.Context, opID id.OperationID) (*models.Operation, error) {
	op, err := f.GetOperationStatus(ctx, opID)
	if err != nil {
		return nil, err
	}
	if op.PendingStep == models.PendingNone {
		return op, dErrors.New(dErrors.CodeConflict, "operation has no pending step")
	}
	op.Resolve(string(op.PendingStep)+" completed by "+requestcontext.ActorID(ctx), op.UpdatedAt)
	return op, nil
}

func (f *fakeService) ExpireStaleOperations(_ context.Context, olderThan time.Duration) (int, error) {
	f.expiredAge = olderThan
	return 2, nil
}

func (f *fakeService) EmergencyPause(ctx context.Context) error {
	if !requestcontext.IsAdmin(ctx) {
		return dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	f.paused = true
	return nil
}

func (f *fakeService) ResumeOperations(context.Context) error {
	f.paused = false
	return nil
}

func (f *fakeService) IsPaused() bool { return f.paused }

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	h := New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	h.Register(r)
	h.RegisterAdmin(r)
	return r
}

func TestHandleDeposit(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc)

	t.Run("executes the oracle's deposit", func(t *testing.T) {
		req := testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/deposits", map[string]any{
			"account": "alice", "amount": 100_000_000, "tx_id": "abc123", "confirmations": 6,
		}), "oracle")
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := testutil.Decode[OperationResponse](t, rr)
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "deposit", resp.Kind)
		assert.Equal(t, "abc123", svc.deposit.TxID)
		assert.Equal(t, int64(6), svc.deposit.Confirmations)
	})

	t.Run("missing tx id", func(t *testing.T) {
		req := testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/deposits", map[string]any{
			"account": "alice", "amount": 1,
		}), "oracle")
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "validation_error")
	})

	t.Run("replay returns the failed operation", func(t *testing.T) {
		svc.failWith = dErrors.New(dErrors.CodeAlreadyProcessed, "tx already registered")
		defer func() { svc.failWith = nil }()

		req := testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/deposits", map[string]any{
			"account": "alice", "amount": 1, "tx_id": "abc123", "confirmations": 6,
		}), "oracle")
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusConflict, rr.Code)

		resp := testutil.Decode[failedResponse](t, rr)
		assert.Equal(t, "already_processed", resp.Error)
		assert.Equal(t, "failed", resp.Operation.Status)
		assert.Equal(t, "already_processed", resp.Operation.FailureCode)
	})
}

func TestHandleWithdrawal(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc)

	t.Run("withdraws for the caller", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/v1/withdrawals", map[string]any{
			"amount": 40_000, "btc_address": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "idempotency_key": " w-1 ",
		}), "alice")
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, id.AccountID("alice"), svc.withdrawal.Account)
		assert.Equal(t, "w-1", svc.withdrawal.IdempotencyKey)
	})

	t.Run("customers cannot withdraw for others", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/v1/withdrawals", map[string]any{
			"account": "bob", "amount": 1, "btc_address": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		}), "alice")
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("anonymous caller", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/withdrawals", map[string]any{
			"amount": 1, "btc_address": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		})
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("paused", func(t *testing.T) {
		svc.failWith = dErrors.New(dErrors.CodeSystemPaused, "operations are paused")
		defer func() { svc.failWith = nil }()
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/v1/withdrawals", map[string]any{
			"amount": 1, "btc_address": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		}), "alice")
		rr := testutil.DoRequest(router, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestHandleExchange(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc)

	req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/v1/exchanges", map[string]any{
		"from_token": "cbtc", "to_token": "wbtc", "amount": 600_000,
	}), "carol")
	rr := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, id.TokenSymbol("CBTC"), svc.exchange.FromToken)
	assert.Equal(t, id.TokenSymbol("WBTC"), svc.exchange.ToToken)

	t.Run("compliance violation carries the hint", func(t *testing.T) {
		svc.failWith = dErrors.New(dErrors.CodeComplianceViolation, "amount requires enhanced verification").
			WithHint("complete enhanced verification to proceed")
		defer func() { svc.failWith = nil }()

		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/v1/exchanges", map[string]any{
			"from_token": "CBTC", "to_token": "WBTC", "amount": 600_000,
		}), "bob")
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusForbidden, rr.Code)
		resp := testutil.Decode[failedResponse](t, rr)
		assert.Equal(t, "complete enhanced verification to proceed", resp.Hint)
		assert.Equal(t, "bob", resp.Operation.Account)
	})

	t.Run("malformed token symbol", func(t *testing.T) {
		req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/v1/exchanges", map[string]any{
			"from_token": "", "to_token": "WBTC", "amount": 1,
		}), "bob")
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "validation_error")
	})
}

func TestHandleGetOperation(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc)
	op, err := svc.record(id.OperationDeposit, "alice", 10)
	require.NoError(t, err)
	path := "/v1/operations/" + op.ID.String()

	req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodGet, path, nil), "alice")
	rr := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, op.ID.String(), testutil.Decode[OperationResponse](t, rr).ID)

	req = testutil.WithActor(testutil.NewJSONRequest(t, http.MethodGet, path, nil), "bob")
	testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusNotFound, "not_found")

	req = testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodGet, path, nil), "ops-1")
	assert.Equal(t, http.StatusOK, testutil.DoRequest(router, req).Code)

	req = testutil.WithActor(testutil.NewJSONRequest(t, http.MethodGet, "/v1/operations/not-a-uuid", nil), "alice")
	testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "validation_error")
}

func TestHandleListOperations(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc)
	_, _ = svc.record(id.OperationDeposit, "alice", 10)
	_, _ = svc.record(id.OperationExchange, "alice", 5)
	_, _ = svc.record(id.OperationDeposit, "bob", 7)

	req := testutil.WithActor(testutil.NewJSONRequest(t, http.MethodGet, "/v1/accounts/alice/operations", nil), "alice")
	rr := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, testutil.Decode[operationsResponse](t, rr).Operations, 2)

	req = testutil.WithActor(testutil.NewJSONRequest(t, http.MethodGet, "/v1/accounts/alice/operations", nil), "bob")
	testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusUnauthorized, "unauthorized")
}

func TestAdminControls(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc)

	t.Run("pause and resume", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/pause", nil), "ops-1"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, testutil.Decode[pauseResponse](t, rr).Paused)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/admin/pause", nil))
		assert.True(t, testutil.Decode[pauseResponse](t, rr).Paused)

		rr = testutil.DoRequest(router, testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/resume", nil), "ops-1"))
		assert.False(t, testutil.Decode[pauseResponse](t, rr).Paused)
	})

	t.Run("pause requires admin", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.WithActor(testutil.NewJSONRequest(t, http.MethodPost, "/admin/pause", nil), "alice"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("retry pending step", func(t *testing.T) {
		op := models.NewOperation(id.OperationDeposit, "alice", 10, time.Now())
		_ = op.Fail(dErrors.New(dErrors.CodeExternalCallFailure, "mint failed"), models.PendingMint, time.Now())
		svc.ops[op.ID] = op
		path := "/admin/operations/" + op.ID.String() + "/retry"

		rr := testutil.DoRequest(router, testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, path, nil), "ops-1"))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.Decode[OperationResponse](t, rr)
		assert.Empty(t, resp.PendingStep)
		assert.Equal(t, "mint completed by ops-1", resp.Resolution)

		rr = testutil.DoRequest(router, testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, path, nil), "ops-1"))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("expire stale operations", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/operations/expire?older_than=30m", nil), "ops-1"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 2, testutil.Decode[expireResponse](t, rr).Expired)
		assert.Equal(t, 30*time.Minute, svc.expiredAge)

		rr = testutil.DoRequest(router, testutil.WithAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/operations/expire?older_than=soon", nil), "ops-1"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}
