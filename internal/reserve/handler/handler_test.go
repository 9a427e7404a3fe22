package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/internal/reserve/models"
	"custody/internal/reserve/service"
	reserveStore "custody/internal/reserve/store"
	"custody/pkg/platform/audit/publishers/compliance"
	auditmemory "custody/pkg/platform/audit/store/memory"
	"custody/pkg/testutil"
)

type fixedSupply int64

func (f fixedSupply) TotalSupply(context.Context) (int64, error) { return int64(f), nil }

func newRouter(t *testing.T, supply int64) (http.Handler, *service.Service) {
	t.Helper()
	svc, err := service.New(reserveStore.NewInMemory(), fixedSupply(supply), compliance.New(auditmemory.NewInMemoryStore()))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).Register(r)
	return r, svc
}

func TestHandleRatio(t *testing.T) {
	router, svc := newRouter(t, 200)
	_, err := svc.RegisterBitcoinDeposit(context.Background(), models.DepositRegistration{TxID: "aa", Amount: 100, Confirmations: 6})
	require.NoError(t, err)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/admin/reserves/ratio", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := testutil.Decode[ratioResponse](t, rr)
	assert.True(t, resp.Ratio.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, resp.BelowMinimum)
	assert.Equal(t, int64(100), resp.AvailableReserves)
}

func TestHandleProof(t *testing.T) {
	router, svc := newRouter(t, 100)
	_, err := svc.RegisterBitcoinDeposit(context.Background(), models.DepositRegistration{TxID: "aa", Amount: 100, Confirmations: 6})
	require.NoError(t, err)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/admin/reserves/proof", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	snapshot := testutil.Decode[models.ProofSnapshot](t, rr)
	assert.Len(t, snapshot.Commitment, 64)
	assert.Equal(t, 1, snapshot.EntryCount)

	entries, err := svc.ListEntries(context.Background())
	require.NoError(t, err)
	assert.NoError(t, svc.VerifyProof(&snapshot, entries))
}

func TestHandleEntry(t *testing.T) {
	router, svc := newRouter(t, 0)
	_, err := svc.RegisterBitcoinDeposit(context.Background(), models.DepositRegistration{TxID: "abc123", Amount: 5, Confirmations: 7})
	require.NoError(t, err)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/admin/reserves/entries/abc123", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.Decode[entryResponse](t, rr)
	assert.Equal(t, "deposit", resp.Direction)
	assert.Equal(t, int64(7), resp.Confirmations)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/admin/reserves/entries/beef", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/admin/reserves/entries/zz", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}
