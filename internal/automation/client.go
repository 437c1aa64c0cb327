// Package automation triggers the RPA jobs that apply validated corrections
// in the core banking system.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/config"
)

// ErrTimeout signals the job-start call exceeded its bound.
var ErrTimeout = errors.New("automation call timed out")

// JobRequest is the payload sent to the automation orchestrator.
type JobRequest struct {
	TicketID     int64  `json:"ticketId"`
	TicketNumber string `json:"ticketNumber"`
	ClientID     string `json:"clientId"`
	Action       string `json:"action"`
	CallbackURL  string `json:"callbackUrl"`
}

// Callback is what the orchestrator posts back once a job finishes.
type Callback struct {
	JobID        string `json:"jobId"`
	TicketNumber string `json:"ticketNumber"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Trigger starts CBS-update jobs.
type Trigger interface {
	StartJob(ctx context.Context, req JobRequest) (string, error)
}

type httpTrigger struct {
	baseURL     string
	apiKey      string
	callbackURL string
	client      *http.Client
	logger      *zap.Logger
}

// NewHTTPTrigger builds a Trigger over the orchestrator's HTTP API with a
// bounded request timeout.
func NewHTTPTrigger(cfg config.AutomationConfig, logger *zap.Logger) Trigger {
	return &httpTrigger{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
		client:      &http.Client{Timeout: cfg.Timeout()},
		logger:      logger,
	}
}

func (t *httpTrigger) StartJob(ctx context.Context, jobReq JobRequest) (string, error) {
	if t.baseURL == "" {
		return "", errors.New("automation endpoint not configured")
	}
	if jobReq.CallbackURL == "" {
		jobReq.CallbackURL = t.callbackURL
	}

	body, err := json.Marshal(jobReq)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/rpa/jobs/start", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("automation trigger: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("automation trigger: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("automation trigger: decode: %w", err)
	}
	t.logger.Info("automation job started",
		zap.String("ticket_number", jobReq.TicketNumber),
		zap.String("job_id", payload.JobID))
	return payload.JobID, nil
}
