package billing_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sokonet/hotspot-portal/internal/billing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPaymentStatus_Decode(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/hotspot/payment-status/77", r.URL.Path)
		w.Write([]byte(`{"status":"active","plan_name":"1 Hour","expiry":"2026-01-01T10:00:00Z"}`))
	}))
	defer backend.Close()

	client := billing.NewClient(backend.URL, time.Second, time.Second, testLogger())
	status, err := client.PaymentStatus(context.Background(), 77)

	require.NoError(t, err)
	require.Equal(t, "active", status.Status)
	require.Equal(t, "1 Hour", status.PlanName)
	require.Equal(t, "2026-01-01T10:00:00Z", status.Expiry)
}

func TestDoRequest_NonSuccessBecomesStatusError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unknown plan"}`))
	}))
	defer backend.Close()

	client := billing.NewClient(backend.URL, time.Second, time.Second, testLogger())
	_, err := client.PaymentStatus(context.Background(), 1)

	var statusErr *billing.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadRequest, statusErr.Code)
	require.Equal(t, "unknown plan", statusErr.Message)
}

func TestResolveRouter(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/hotspot/routers/gw-01", r.URL.Path)
		w.Write([]byte(`{"id":2}`))
	}))
	defer backend.Close()

	client := billing.NewClient(backend.URL, time.Second, time.Second, testLogger())
	id, err := client.ResolveRouter(context.Background(), "gw-01")

	require.NoError(t, err)
	require.EqualValues(t, 2, id)
}

func TestPlans_ReturnsDecodedAndRaw(t *testing.T) {
	body := `[{"id":10,"name":"1 Hour","price":30,"speed":"5M/5M"}]`
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer backend.Close()

	client := billing.NewClient(backend.URL, time.Second, time.Second, testLogger())
	plans, raw, err := client.Plans(context.Background())

	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.EqualValues(t, 10, plans[0].ID)
	require.JSONEq(t, body, string(raw))
}
