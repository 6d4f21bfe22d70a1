package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/notify"
	"github.com/kasuganosora/combatcore/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseTypes(t *testing.T) {
	assert.Nil(t, parseTypes(""))
	assert.Equal(t, map[string]bool{"died": true, "healed": true}, parseTypes("died, healed,"))
}

func TestServeSSE_StreamsFilteredEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, ps := testutil.SetupTestCache(t)
	h := NewHandler(ps, "combat.events", zap.NewNop())
	pub := notify.NewPublisher(ps, "combat.events", notify.Config{})
	defer pub.Stop(context.Background())

	r := gin.New()
	r.GET("/api/events", h.ServeSSE)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?types=died", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	line, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	// The subscription is live once the connected event has been written.
	pub.Emit(event.Healed{Subject: 1, Amount: 5})
	pub.Emit(event.Died{Subject: 9})

	var got []string
	for len(got) < 2 {
		line, err := lines.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: ") || strings.HasPrefix(line, "data: ") {
			got = append(got, strings.TrimSpace(line))
		}
		if len(got) == 1 && got[0] == "data: {}" {
			got = got[:0]
		}
	}
	assert.Equal(t, "event: died", got[0])
	assert.Equal(t, `data: {"subject":9}`, got[1])
}
