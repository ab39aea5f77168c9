package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements GraphHooks, CacheHooks and HTTPHooks by writing debug
// records to a logger.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks that log to l.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{Logger: l}
}

// Install registers h for every hook category.
func (h *LogHooks) Install() {
	SetGraphHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnMaterializeStart(kind string, resourceCount int) {
	h.Logger.Debug("materialize start", "kind", kind, "resources", resourceCount)
}

func (h *LogHooks) OnMaterializeComplete(kind string, modelCount int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("materialize failed", "kind", kind, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("materialize complete", "kind", kind, "models", modelCount, "duration", d)
}

func (h *LogHooks) OnRenderStart(_ context.Context, format string, nodeCount int) {
	h.Logger.Debug("render start", "format", format, "nodes", nodeCount)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	h.Logger.Debug("render complete", "format", format, "duration", d, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.Logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.Logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.Logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
