// Package llmobserve implements the Logging Hooks component (spec §4.H): a
// uniform http.RoundTripper wrapper that observes request/response metadata
// for every provider client without altering the request or response in any
// way.
//
// Grounded on the teacher's internal/observe.Middleware (structured slog
// fields keyed by trace/correlation id, recorded around an inner handler)
// and adapted from an inbound http.Handler wrapper to an outbound
// http.RoundTripper wrapper, since every Provider Client in pkg/provider/llm
// drives its own outbound *http.Client rather than serving inbound
// requests.
package llmobserve

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Metadata is the small, semantically opaque string map the Completion
// Broker attaches to a call (spec §4.F): event_type, root_id, and the
// current retry attempt number, at minimum. The middleware never inspects
// these keys beyond logging them.
type Metadata map[string]string

type metadataCtxKey struct{}

// WithMetadata returns a context carrying md, retrievable by the Transport
// via MetadataFrom. Call this once per logical stream_completion call,
// before invoking the Provider Client.
func WithMetadata(ctx context.Context, md Metadata) context.Context {
	return context.WithValue(ctx, metadataCtxKey{}, md)
}

// MetadataFrom extracts the Metadata attached by WithMetadata, or an empty
// map if none was attached.
func MetadataFrom(ctx context.Context) Metadata {
	if md, ok := ctx.Value(metadataCtxKey{}).(Metadata); ok {
		return md
	}
	return Metadata{}
}

// Transport wraps an inner http.RoundTripper and logs structured fields for
// every outbound request, derived from the Metadata carried on the
// request's context. It never mutates the request or the response: a
// failure to log never becomes a failure to call the provider.
type Transport struct {
	inner  http.RoundTripper
	logger *slog.Logger
}

// New wraps inner with the logging Transport. A nil inner uses
// http.DefaultTransport. A nil logger uses slog.Default().
func New(inner http.RoundTripper, logger *slog.Logger) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{inner: inner, logger: logger}
}

// RoundTrip implements http.RoundTripper. It is pure middleware: identical
// request in, identical response (or error) out, with logging as the only
// side effect.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	md := MetadataFrom(req.Context())
	start := time.Now()

	t.logger.Debug("llm provider request",
		slog.String("event_type", md["event_type"]),
		slog.String("root_id", md["root_id"]),
		slog.String("attempt", md["retries"]),
		slog.String("method", req.Method),
		slog.String("host", req.URL.Host),
		slog.String("path", req.URL.Path),
	)

	resp, err := t.inner.RoundTrip(req)

	duration := time.Since(start)
	if err != nil {
		t.logger.Warn("llm provider request failed",
			slog.String("event_type", md["event_type"]),
			slog.String("root_id", md["root_id"]),
			slog.String("attempt", md["retries"]),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return resp, err
	}

	t.logger.Debug("llm provider response",
		slog.String("event_type", md["event_type"]),
		slog.String("root_id", md["root_id"]),
		slog.String("attempt", md["retries"]),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)
	return resp, nil
}

// WrapClient returns a shallow copy of client with its Transport wrapped by
// a logging Transport, so a single call site can attach the hook uniformly
// across every provider client constructor in pkg/provider/llm.
func WrapClient(client *http.Client, logger *slog.Logger) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	wrapped := *client
	wrapped.Transport = New(client.Transport, logger)
	return &wrapped
}
