package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

type groupRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	Name string `json:"name"`
}

type expenseRequest struct {
	Description string            `json:"description"`
	Amount      string            `json:"amount"`
	PaidBy      string            `json:"paidBy"`
	Splits      map[string]string `json:"splits"`
}

type verifyRequest struct {
	SessionID      string `json:"sessionId"`
	TxID           string `json:"txId"`
	ExpectedAmount string `json:"expectedAmount"`
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

func parseGroupID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "groupID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid group id %q", errBadRequest, raw)
	}
	return id, nil
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// sessionID prefers the X-Session-ID header over the body field.
func sessionID(r *http.Request, body string) string {
	if h := strings.TrimSpace(r.Header.Get(HeaderSessionID)); h != "" {
		return h
	}
	return strings.TrimSpace(body)
}

func wantsAsync(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("async")) {
	case "1", "true", "yes":
		return true
	}
	return false
}
