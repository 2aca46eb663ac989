package external

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"plangate/internal/types"
)

// ---------------------------------------------------------------------------
// Webhook Verification
// ---------------------------------------------------------------------------

const testWebhookSecret = "whsec_test_secret"

var testEventPayload = []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)

// signPayload builds a Stripe-Signature header for the payload the way
// Stripe's SDK computes it.
func signPayload(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func TestStripeVerifier_ValidSignature(t *testing.T) {
	v := &StripeVerifier{}
	header := signPayload(testEventPayload, testWebhookSecret, time.Now())

	if err := v.Verify(testEventPayload, header, testWebhookSecret); err != nil {
		t.Fatalf("Verify rejected a valid signature: %v", err)
	}
}

func TestStripeVerifier_WrongSecret(t *testing.T) {
	v := &StripeVerifier{}
	header := signPayload(testEventPayload, "whsec_other", time.Now())

	if err := v.Verify(testEventPayload, header, testWebhookSecret); err == nil {
		t.Fatal("Verify accepted a signature made with a different secret")
	}
}

func TestStripeVerifier_TamperedPayload(t *testing.T) {
	v := &StripeVerifier{}
	header := signPayload(testEventPayload, testWebhookSecret, time.Now())

	tampered := append([]byte(nil), testEventPayload...)
	tampered[len(tampered)-2] = 'X'

	if err := v.Verify(tampered, header, testWebhookSecret); err == nil {
		t.Fatal("Verify accepted a tampered payload")
	}
}

func TestStripeVerifier_StaleTimestampRejected(t *testing.T) {
	v := &StripeVerifier{}
	header := signPayload(testEventPayload, testWebhookSecret, time.Now().Add(-time.Hour))

	if err := v.Verify(testEventPayload, header, testWebhookSecret); err == nil {
		t.Fatal("Verify accepted a signature outside the timestamp tolerance")
	}
}

func TestStripeVerifier_GarbageHeaderRejected(t *testing.T) {
	v := &StripeVerifier{}
	if err := v.Verify(testEventPayload, "not-a-signature", testWebhookSecret); err == nil {
		t.Fatal("Verify accepted a malformed header")
	}
}

// ---------------------------------------------------------------------------
// Checkout Sessions
// ---------------------------------------------------------------------------

func newTestStripeClient(baseURL string) *StripeClient {
	base := NewBaseClient(
		http.DefaultClient,
		"stripe-test",
		RetryPolicy{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: time.Millisecond},
		"plangate-test/1.0",
		WithSleepFunc(func(time.Duration) {}),
	)
	return newStripeClientWithBase(base, StripeClientConfig{
		SecretKey:  "sk_test_123",
		SuccessURL: "https://example.com/ok",
		CancelURL:  "https://example.com/cancel",
		PlanPrices: map[types.PlanTier]string{
			types.PlanTrial:    "price_trial",
			types.PlanStandard: "price_standard",
		},
		BaseURL: baseURL,
	})
}

func TestCreateCheckoutSession(t *testing.T) {
	var gotForm map[string][]string
	var gotAuthUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuthUser, _, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		gotForm = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_1",
			"url": "https://checkout.stripe.com/c/pay/cs_test_1",
		})
	}))
	defer srv.Close()

	c := newTestStripeClient(srv.URL)
	session, err := c.CreateCheckoutSession(context.Background(), "user-42", types.PlanStandard)
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}

	if session.ID != "cs_test_1" || session.URL == "" {
		t.Errorf("session = %+v", session)
	}
	if gotAuthUser != "sk_test_123" {
		t.Errorf("basic auth user = %q, want the secret key", gotAuthUser)
	}
	if got := gotForm["line_items[0][price]"]; len(got) != 1 || got[0] != "price_standard" {
		t.Errorf("price = %v, want price_standard", got)
	}
	if got := gotForm["metadata[user_id]"]; len(got) != 1 || got[0] != "user-42" {
		t.Errorf("metadata user_id = %v", got)
	}
	if got := gotForm["metadata[plan]"]; len(got) != 1 || got[0] != "standard" {
		t.Errorf("metadata plan = %v", got)
	}
	if got := gotForm["mode"]; len(got) != 1 || got[0] != "payment" {
		t.Errorf("mode = %v, want payment", got)
	}
}

func TestCreateCheckoutSession_UnconfiguredPlan(t *testing.T) {
	c := newTestStripeClient("http://127.0.0.1:0")

	_, err := c.CreateCheckoutSession(context.Background(), "user-42", types.PlanFree)
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeValidationInvalidPlan {
		t.Fatalf("error = %v, want AppError %s", err, types.ErrCodeValidationInvalidPlan)
	}
}

func TestCreateCheckoutSession_StripeRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "card_error", "message": "declined"},
		})
	}))
	defer srv.Close()

	c := newTestStripeClient(srv.URL)
	_, err := c.CreateCheckoutSession(context.Background(), "user-42", types.PlanTrial)

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamStripe {
		t.Fatalf("error = %v, want AppError %s", err, types.ErrCodeUpstreamStripe)
	}
}

func TestCreateCheckoutSession_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	}))
	defer srv.Close()

	c := newTestStripeClient(srv.URL)
	_, err := c.CreateCheckoutSession(context.Background(), "user-42", types.PlanTrial)

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamStripe {
		t.Fatalf("error = %v, want AppError %s", err, types.ErrCodeUpstreamStripe)
	}
}

func TestStubWebhookVerifier_AlwaysPasses(t *testing.T) {
	v := NewStubWebhookVerifier(nil)
	if err := v.Verify([]byte("anything"), "any-header", ""); err != nil {
		t.Fatalf("stub verifier returned error: %v", err)
	}
}
