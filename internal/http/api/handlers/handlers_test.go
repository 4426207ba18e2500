package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/release"
)

type fakeGateway struct {
	connected bool
	latency   time.Duration
	known     bool
}

func (f fakeGateway) Connected() bool { return f.connected }

func (f fakeGateway) HeartbeatLatency() (time.Duration, bool) { return f.latency, f.known }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	started := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name       string
		gateway    fakeGateway
		wantStatus int
		wantBody   string
		wantPing   bool
	}{
		{"connected", fakeGateway{connected: true, latency: 42 * time.Millisecond, known: true}, http.StatusOK, "ok", true},
		{"disconnected", fakeGateway{}, http.StatusServiceUnavailable, "unhealthy", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.gateway)
			h.started = started
			h.now = func() time.Time { return started.Add(90 * time.Second) }

			r := gin.New()
			r.GET("/health", h.Health)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
			var resp healthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tc.wantBody || resp.Uptime != 90 {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if (resp.Discord.Ping != nil) != tc.wantPing {
				t.Fatalf("unexpected ping: %v", resp.Discord.Ping)
			}
			if tc.wantPing && *resp.Discord.Ping != 42 {
				t.Fatalf("expected ping 42, got %d", *resp.Discord.Ping)
			}
		})
	}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"zen":"hello"}`)
	secret := "s3cret"
	if !VerifySignature(body, sign(body, secret), secret) {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature(body, sign(body, "other"), secret) {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifySignature([]byte(`{"zen":"tampered"}`), sign(body, secret), secret) {
		t.Fatalf("expected tampered payload to fail")
	}
	if VerifySignature(body, strings.TrimPrefix(sign(body, secret), "sha256="), secret) {
		t.Fatalf("expected missing prefix to fail")
	}
	if VerifySignature(body, "sha256=zz", secret) {
		t.Fatalf("expected non-hex signature to fail")
	}
}

type fakeNotifier struct {
	result release.NotificationResult
	err    error
	calls  int
}

func (f *fakeNotifier) Notify(context.Context, release.Payload) (release.NotificationResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeRecorder struct {
	rows []*models.ReleaseDelivery
}

func (f *fakeRecorder) Record(_ context.Context, row *models.ReleaseDelivery) error {
	f.rows = append(f.rows, row)
	return nil
}

const releaseBody = `{"action":"released","release":{"tag_name":"v1.2.0","name":"v1.2.0","body":"notes","html_url":"https://example.com","author":{"login":"octo","avatar_url":"a"}},"repository":{"name":"repo","full_name":"org/repo"}}`

func serveWebhook(t *testing.T, h *WebhookHandler, event, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/github", h.GitHub)
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_RejectsInvalidSignature(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewWebhookHandler("secret", notifier, nil)

	for _, signature := range []string{"", "sha256=deadbeef", sign([]byte(releaseBody), "wrong")} {
		w := serveWebhook(t, h, "release", releaseBody, signature)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "invalid signature") {
			t.Fatalf("unexpected body %s", w.Body.String())
		}
	}
	if notifier.calls != 0 {
		t.Fatalf("expected notifier not called")
	}
}

func TestWebhook_PingAndIgnoredEvents(t *testing.T) {
	h := NewWebhookHandler("secret", &fakeNotifier{}, nil)
	body := `{"zen":"Keep it logically awesome."}`

	w := serveWebhook(t, h, "ping", body, sign([]byte(body), "secret"))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pong") {
		t.Fatalf("expected pong, got %d %s", w.Code, w.Body.String())
	}
	w = serveWebhook(t, h, "push", body, sign([]byte(body), "secret"))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "event ignored") {
		t.Fatalf("expected event ignored, got %d %s", w.Code, w.Body.String())
	}
}

func TestWebhook_ReleaseNotifiesAndRecords(t *testing.T) {
	notifier := &fakeNotifier{result: release.NotificationResult{
		Success: 2,
		Failed:  1,
		Errors:  []release.DeliveryError{{GuildID: "g3", ChannelID: "c3", Error: "Channel not found or not a text channel"}},
	}}
	recorder := &fakeRecorder{}
	h := NewWebhookHandler("secret", notifier, recorder)

	w := serveWebhook(t, h, "release", releaseBody, sign([]byte(releaseBody), "secret"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Result release.NotificationResult `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Success != 2 || resp.Result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", resp.Result)
	}
	if len(recorder.rows) != 1 {
		t.Fatalf("expected one recorded delivery, got %d", len(recorder.rows))
	}
	row := recorder.rows[0]
	if row.DeliveryID != "delivery-1" || row.Repository != "org/repo" || row.Tag != "v1.2.0" || row.Success != 2 {
		t.Fatalf("unexpected delivery row: %+v", row)
	}
	if !strings.Contains(string(row.Errors), "g3") {
		t.Fatalf("expected errors recorded, got %s", string(row.Errors))
	}
}

func TestWebhook_ReleaseErrors(t *testing.T) {
	h := NewWebhookHandler("secret", &fakeNotifier{}, nil)
	bad := `{"action":"released"}`
	w := serveWebhook(t, h, "release", bad, sign([]byte(bad), "secret"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload, got %d", w.Code)
	}

	h = NewWebhookHandler("secret", &fakeNotifier{err: errors.New("db down")}, nil)
	w = serveWebhook(t, h, "release", releaseBody, sign([]byte(releaseBody), "secret"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when notifier fails, got %d", w.Code)
	}
}
