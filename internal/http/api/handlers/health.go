package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GatewayStatus reports the Discord gateway connection.
type GatewayStatus interface {
	Connected() bool
	// HeartbeatLatency returns the last heartbeat round trip, if known.
	HeartbeatLatency() (time.Duration, bool)
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	gateway GatewayStatus
	started time.Time
	now     func() time.Time
}

// NewHealthHandler constructs a health handler. Uptime counts from now.
func NewHealthHandler(gateway GatewayStatus) *HealthHandler {
	return &HealthHandler{gateway: gateway, started: time.Now(), now: time.Now}
}

type discordHealth struct {
	Connected bool   `json:"connected"`
	Ping      *int64 `json:"ping"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Discord discordHealth `json:"discord"`
	Uptime  int64         `json:"uptime"`
}

// Health responds 200 while the gateway is connected and 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := healthResponse{Status: "unhealthy"}
	if h.gateway != nil && h.gateway.Connected() {
		resp.Status = "ok"
		resp.Discord.Connected = true
	}
	if h.gateway != nil {
		if latency, ok := h.gateway.HeartbeatLatency(); ok && latency >= 0 {
			ms := latency.Milliseconds()
			resp.Discord.Ping = &ms
		}
	}
	resp.Uptime = int64(h.now().Sub(h.started) / time.Second)

	status := http.StatusOK
	if !resp.Discord.Connected {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
