package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/harborvet/vetpms/pkg/logging"
)

// SMSSender sends text messages to pet owners.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// HTTPSMSSender posts messages to a JSON SMS gateway.
type HTTPSMSSender struct {
	httpClient *http.Client
	gatewayURL string
	apiKey     string
	from       string
	logger     *logging.Logger
}

// SMSGatewayConfig holds configuration for the SMS gateway.
type SMSGatewayConfig struct {
	GatewayURL string
	APIKey     string
	FromNumber string
}

// NewHTTPSMSSender creates a gateway-backed SMS sender. Returns nil when no
// gateway is configured.
func NewHTTPSMSSender(cfg SMSGatewayConfig, logger *logging.Logger) *HTTPSMSSender {
	if cfg.GatewayURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPSMSSender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.APIKey,
		from:       cfg.FromNumber,
		logger:     logger,
	}
}

type smsPayload struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

// SendSMS posts one message to the gateway.
func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(smsPayload{To: to, From: s.from, Body: body})
	if err != nil {
		return fmt.Errorf("notify: marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("sms gateway request failed", "error", err, "to", to)
		return fmt.Errorf("notify: sms send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		s.logger.Error("sms gateway returned error status", "status", resp.StatusCode, "to", to)
		return fmt.Errorf("notify: sms gateway returned status %d", resp.StatusCode)
	}

	s.logger.Info("sms sent", "to", to)
	return nil
}

// StubSMSSender logs instead of sending.
type StubSMSSender struct {
	logger *logging.Logger
}

// NewStubSMSSender creates a stub SMS sender.
func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

// SendSMS logs the message but does not send it.
func (s *StubSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.Info("stub sms sender: would send sms", "to", to, "chars", len(body))
	return nil
}

var _ SMSSender = (*HTTPSMSSender)(nil)
