package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/release"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	eventHeader     = "X-GitHub-Event"
	deliveryHeader  = "X-GitHub-Delivery"
	signaturePrefix = "sha256="

	maxWebhookBody = 5 << 20
)

// ReleaseNotifier fans a release out to guild channels.
type ReleaseNotifier interface {
	Notify(ctx context.Context, payload release.Payload) (release.NotificationResult, error)
}

// DeliveryRecorder persists delivery outcomes.
type DeliveryRecorder interface {
	Record(ctx context.Context, row *models.ReleaseDelivery) error
}

// WebhookHandler receives GitHub webhooks.
type WebhookHandler struct {
	secret   string
	notifier ReleaseNotifier
	recorder DeliveryRecorder
}

// NewWebhookHandler constructs a webhook handler. recorder may be nil.
func NewWebhookHandler(secret string, notifier ReleaseNotifier, recorder DeliveryRecorder) *WebhookHandler {
	return &WebhookHandler{secret: secret, notifier: notifier, recorder: recorder}
}

// VerifySignature checks a "sha256=<hex>" HMAC-SHA256 signature of payload.
func VerifySignature(payload []byte, signature, secret string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) || secret == "" {
		return false
	}
	expected, errDecode := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if errDecode != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(expected, mac.Sum(nil))
}

// GitHub handles POST /webhook/github.
func (h *WebhookHandler) GitHub(c *gin.Context) {
	body, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	if !VerifySignature(body, c.GetHeader(signatureHeader), h.secret) {
		log.WithField("client_ip", c.ClientIP()).Warn("webhook: invalid signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	event := c.GetHeader(eventHeader)
	switch event {
	case "ping":
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	case "release":
		h.handleRelease(c, body)
	default:
		log.WithField("event", event).Debug("webhook: event ignored")
		c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
	}
}

func (h *WebhookHandler) handleRelease(c *gin.Context, body []byte) {
	payload, errParse := release.ParseReleasePayload(body)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ctx := c.Request.Context()
	result, errNotify := h.notifier.Notify(ctx, payload)
	if errNotify != nil {
		log.WithError(errNotify).Error("webhook: release notification failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "notification failed"})
		return
	}

	h.record(ctx, c.GetHeader(deliveryHeader), payload, result)
	log.WithFields(log.Fields{
		"repository": payload.Repository.FullName,
		"tag":        payload.Release.TagName,
		"success":    result.Success,
		"failed":     result.Failed,
		"skipped":    result.Skipped,
	}).Info("webhook: release processed")
	c.JSON(http.StatusOK, gin.H{"message": "processed", "result": result})
}

func (h *WebhookHandler) record(ctx context.Context, deliveryID string, payload release.Payload, result release.NotificationResult) {
	if h.recorder == nil {
		return
	}
	errorsJSON, errMarshal := json.Marshal(result.Errors)
	if errMarshal != nil {
		errorsJSON = []byte("[]")
	}
	row := &models.ReleaseDelivery{
		DeliveryID: strings.TrimSpace(deliveryID),
		Repository: payload.Repository.FullName,
		Tag:        payload.Release.TagName,
		Action:     payload.Action,
		Success:    result.Success,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		Errors:     datatypes.JSON(errorsJSON),
	}
	if errRecord := h.recorder.Record(ctx, row); errRecord != nil {
		log.WithError(errRecord).Warn("webhook: record delivery failed")
	}
}
