// Package chainz looks up transactions on a chainz-style block explorer API
// (GET {base}?q=txinfo&t={txid}).
package chainz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"litepay/internal/core"
	applog "litepay/internal/log"
)

const (
	DefaultBaseURL = "https://chainz.cryptoid.info/ltc/api.dws"
	DefaultTimeout = 15 * time.Second

	maxBodyBytes = 4 << 20
)

var errNotFound = errors.New("transaction not found")

// LookupError reports why a transaction could not be resolved.
type LookupError struct {
	TxID       string
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lookup %s: status %d: %v", e.TxID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lookup %s: %v", e.TxID, e.Err)
}

func (e *LookupError) Unwrap() []error {
	return []error{core.ErrLookup, e.Err}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a lookup client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With(applog.FieldComponent, applog.ComponentLookup),
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Lookup fetches txinfo for txID. Any transport failure, non-2xx status or
// undecodable body is returned as a *LookupError.
func (c *Client) Lookup(ctx context.Context, txID string) (core.TransactionRecord, error) {
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return core.TransactionRecord{}, &LookupError{TxID: txID, Err: errors.New("empty transaction id")}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return core.TransactionRecord{}, &LookupError{TxID: txID, Err: fmt.Errorf("parse base url: %w", err)}
	}
	q := u.Query()
	q.Set("q", "txinfo")
	q.Set("t", txID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return core.TransactionRecord{}, &LookupError{TxID: txID, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Transaction lookup request failed", applog.FieldTxID, txID, applog.FieldError, err)
		return core.TransactionRecord{}, &LookupError{TxID: txID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return core.TransactionRecord{}, &LookupError{TxID: txID, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.TransactionRecord{}, &LookupError{
			TxID:       txID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(body, 200)),
		}
	}

	record, err := decodeTxInfo(body)
	if err != nil {
		return core.TransactionRecord{}, &LookupError{TxID: txID, StatusCode: resp.StatusCode, Err: err}
	}
	if record.TxID == "" {
		record.TxID = txID
	}

	c.logger.DebugContext(ctx, "Transaction lookup completed",
		"tx_id", txID,
		"inputs", len(record.Inputs),
		"duration_ms", time.Since(start).Milliseconds())
	return record, nil
}

// txInfo mirrors the subset of the explorer response the ledger needs.
type txInfo struct {
	Hash          string   `json:"hash"`
	Block         int64    `json:"block"`
	Confirmations int64    `json:"confirmations"`
	Fees          amount   `json:"fees"`
	Inputs        []txLine `json:"inputs"`
	Outputs       []txLine `json:"outputs"`
}

type txLine struct {
	Addr   string `json:"addr"`
	Amount amount `json:"amount"`
}

// amount keeps the raw text of a JSON number or string.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	*a = amount(b)
	return nil
}

func decodeTxInfo(body []byte) (core.TransactionRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return core.TransactionRecord{}, errNotFound
	}
	if trimmed[0] != '{' {
		return core.TransactionRecord{}, fmt.Errorf("%w: %s", errNotFound, truncate(trimmed, 200))
	}

	var info txInfo
	if err := json.Unmarshal(trimmed, &info); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("decode txinfo: %w", err)
	}
	if info.Inputs == nil {
		return core.TransactionRecord{}, errors.New("decode txinfo: missing inputs")
	}

	record := core.TransactionRecord{
		TxID:          info.Hash,
		Block:         info.Block,
		Confirmations: info.Confirmations,
		Fees:          string(info.Fees),
		Inputs:        make([]core.TxInput, 0, len(info.Inputs)),
	}
	for _, in := range info.Inputs {
		record.Inputs = append(record.Inputs, core.TxInput{Address: in.Addr, Amount: string(in.Amount)})
	}
	for _, out := range info.Outputs {
		record.Outputs = append(record.Outputs, core.TxOutput{Address: out.Addr, Amount: string(out.Amount)})
	}
	return record, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
