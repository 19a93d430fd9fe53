package chainz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litepay/internal/core"
	"litepay/internal/settlement"
)

var _ settlement.Lookup = (*Client)(nil)

const sampleTx = `{
	"hash": "abc123",
	"block": 2500000,
	"confirmations": 12,
	"fees": 0.0001,
	"inputs": [
		{"addr": "LaddrA", "amount": 30},
		{"addr": "LaddrB", "amount": "5.5"}
	],
	"outputs": [
		{"addr": "LaddrC", "amount": 35.4999}
	]
}`

func TestLookupSuccess(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleTx))
	}))
	defer srv.Close()

	rec, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), " abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "q=txinfo&t=abc123", gotQuery)
	assert.Equal(t, "abc123", rec.TxID)
	assert.Equal(t, int64(12), rec.Confirmations)
	assert.Equal(t, "0.0001", rec.Fees)
	require.Len(t, rec.Inputs, 2)
	assert.Equal(t, "30", rec.Inputs[0].Amount)
	assert.Equal(t, "5.5", rec.Inputs[1].Amount)
	assert.Equal(t, "LaddrB", rec.Inputs[1].Address)
	require.Len(t, rec.Outputs, 1)
	assert.True(t, rec.Matches(mustDecimal(t, "30")))
}

func TestLookupFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "oops"},
		{"not found status", http.StatusNotFound, ""},
		{"null body", http.StatusOK, "null"},
		{"plain text", http.StatusOK, "Error: unknown transaction"},
		{"missing inputs", http.StatusOK, `{"hash":"x"}`},
		{"broken json", http.StatusOK, `{"inputs": [`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrLookup))
			var le *LookupError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, "x", le.TxID)
		})
	}
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 50*time.Millisecond).Lookup(context.Background(), "slow")
	assert.ErrorIs(t, err, core.ErrLookup)
}

func TestLookupEmptyID(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:0", time.Second).Lookup(context.Background(), "  ")
	assert.ErrorIs(t, err, core.ErrLookup)
}

func TestLookupDrivesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleTx))
	}))
	defer srv.Close()

	s := settlement.NewSession(NewClient(srv.URL, time.Second))
	st := s.Verify(context.Background(), "abc123", "5.50")
	assert.Equal(t, core.PaymentPaid, st.PaymentStatus)
}

func TestLookupExponentAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hash":"abc","inputs":[{"addr":"L1","amount":1e-05}]}`))
	}))
	defer srv.Close()

	st := settlement.NewSession(NewClient(srv.URL, 0)).Verify(context.Background(), "abc", "0.00001")
	assert.Equal(t, settlement.StatusSucceeded, st.Status)
	require.NotNil(t, st.Record)
	assert.Equal(t, "1e-05", st.Record.Inputs[0].Amount)
	assert.Equal(t, core.PaymentPaid, st.PaymentStatus)
}

func TestDefaults(t *testing.T) {
	c := NewClient("", 0)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := core.ParseDecimal(s)
	require.NoError(t, err)
	return d
}
