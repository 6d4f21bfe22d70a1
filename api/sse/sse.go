package sse

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/cache"
	"github.com/kasuganosora/combatcore/notify"
	"go.uber.org/zap"
)

// Handler streams published combat events to HTTP clients.
type Handler struct {
	pubsub    cache.PubSub
	channel   string
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a Handler reading from channel.
func NewHandler(pubsub cache.PubSub, channel string, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, channel: channel, keepalive: 30 * time.Second, logger: logger}
}

// ServeSSE handles GET /api/events?types=died,attack_resolved.
// Each event is sent with its type as the SSE event name and the event body
// as data. An empty types filter streams everything.
func (h *Handler) ServeSSE(c *gin.Context) {
	filter := parseTypes(c.Query("types"))

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, h.channel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event stream unavailable"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			env, err := notify.Decode(msg.Payload)
			if err != nil {
				h.logger.Debug("sse skipping malformed payload", zap.Error(err))
				continue
			}
			if len(filter) > 0 && !filter[env.Type] {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", env.Type, env.Data)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func parseTypes(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[t] = true
		}
	}
	return out
}
