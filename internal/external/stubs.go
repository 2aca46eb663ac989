package external

import "log/slog"

// StubWebhookVerifier implements WebhookVerifier by accepting every payload.
// It is wired only in local mode when no signing secret is configured, so
// the webhook endpoint can be exercised with curl.
type StubWebhookVerifier struct {
	logger *slog.Logger
}

// NewStubWebhookVerifier creates a StubWebhookVerifier.
func NewStubWebhookVerifier(logger *slog.Logger) *StubWebhookVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubWebhookVerifier{logger: logger}
}

// Verify always succeeds. A warning is logged on every call so a stub that
// leaks into a real deployment is visible in the logs.
func (s *StubWebhookVerifier) Verify(payload []byte, header string, secret string) error {
	s.logger.Warn("stub webhook verifier accepted payload without signature check")
	return nil
}

// Compile-time assertion that StubWebhookVerifier satisfies WebhookVerifier.
var _ WebhookVerifier = (*StubWebhookVerifier)(nil)
