package llmobserve

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTransport_PassesRequestAndResponseThrough(t *testing.T) {
	var seenHeader string
	inner := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seenHeader = r.Header.Get("Authorization")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: make(http.Header)}, nil
	})

	tr := New(inner, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "https://api.example.com/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req = req.WithContext(WithMetadata(req.Context(), Metadata{"event_type": "completion", "root_id": "root-1"}))

	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if seenHeader != "Bearer secret" {
		t.Fatalf("inner transport did not see the original Authorization header: %q", seenHeader)
	}
}

func TestMetadataFrom_EmptyWhenUnset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://example.com", nil)
	md := MetadataFrom(req.Context())
	if len(md) != 0 {
		t.Fatalf("md = %+v, want empty", md)
	}
}

func TestWrapClient_PreservesOtherClientFields(t *testing.T) {
	base := &http.Client{}
	wrapped := WrapClient(base, nil)
	if wrapped == base {
		t.Fatal("WrapClient must return a distinct *http.Client, not mutate the original")
	}
	if wrapped.Transport == nil {
		t.Fatal("wrapped client has no Transport")
	}
	if base.Transport != nil {
		t.Fatal("WrapClient mutated the original client's Transport")
	}
}
