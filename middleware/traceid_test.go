package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func traceRouter(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(TraceID())
	r.GET("/trace", func(c *gin.Context) {
		TraceLogger(c, log).Info("handled")
		c.String(http.StatusOK, GetTraceID(c))
	})
	return r
}

func TestTraceID(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		wantSame bool // echoed back unchanged
	}{
		{name: "generated when absent"},
		{name: "client value kept", header: "combat-debug-1", wantSame: true},
		{name: "oversized value replaced", header: strings.Repeat("x", 100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trace", nil)
			if tc.header != "" {
				req.Header.Set(TraceIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			traceRouter(zap.NewNop()).ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)

			id := w.Body.String()
			assert.Equal(t, id, w.Header().Get(TraceIDHeader))
			if tc.wantSame {
				assert.Equal(t, tc.header, id)
				return
			}
			_, err := uuid.Parse(id)
			assert.NoError(t, err)
		})
	}
}

func TestTraceID_UniquePerRequest(t *testing.T) {
	r := traceRouter(zap.NewNop())
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trace", nil))
		seen[w.Body.String()] = true
	}
	assert.Len(t, seen, 3)
}

func TestTraceLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	req := httptest.NewRequest(http.MethodGet, "/trace", nil)
	req.Header.Set(TraceIDHeader, "abc")
	traceRouter(zap.New(core)).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()["trace_id"])

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetTraceID(c))
	l := zap.NewNop()
	assert.Same(t, l, TraceLogger(c, l))
}
