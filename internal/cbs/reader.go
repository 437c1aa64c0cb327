// Package cbs reads authoritative client records from the core banking
// system's read gateway.
package cbs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/config"
)

// Record holds the authoritative field values for one client, keyed by CBS
// column name.
type Record map[string]string

// Sentinel errors. Not-found is distinct from transport failure so the
// reconciliation orchestrator can classify the task outcome correctly.
var (
	ErrClientNotFound = errors.New("client not found in cbs")
	ErrTimeout        = errors.New("cbs read timed out")
)

// Reader fetches a client's authoritative record by identity.
type Reader interface {
	GetClient(ctx context.Context, clientID string) (Record, error)
}

type httpReader struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPReader builds a Reader over the CBS HTTP gateway with a bounded
// request timeout.
func NewHTTPReader(cfg config.CBSConfig, logger *zap.Logger) Reader {
	return &httpReader{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

func (r *httpReader) GetClient(ctx context.Context, clientID string) (Record, error) {
	endpoint := fmt.Sprintf("%s/api/clients/%s", r.baseURL, url.PathEscape(clientID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("cbs read: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrClientNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("cbs read: unexpected status %d", resp.StatusCode)
	}

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("cbs read: decode: %w", err)
	}
	r.logger.Debug("fetched cbs record", zap.String("client_id", clientID), zap.Int("fields", len(record)))
	return record, nil
}
