package headers

import (
	"testing"

	"github.com/mir00r/edge-router/internal/domain"
	"github.com/stretchr/testify/assert"
)

func newTestAugmenter() *Augmenter {
	return NewAugmenter(Config{
		BaseDomain:          "Example.com",
		DemoAPIKey:          "demo-key",
		SubscriptionsAPIKey: "subs-key",
	})
}

func newRequest(path string, headers domain.Headers) *domain.Request {
	if headers == nil {
		headers = domain.Headers{}
	}
	return &domain.Request{URI: path, Headers: headers, ClientAddress: "10.0.0.1", ViewerCountry: "DE"}
}

func TestApplyAPIKeys(t *testing.T) {
	a := newTestAugmenter()

	tests := []struct {
		name    string
		path    string
		headers domain.Headers
		wantKey string
		wantSet bool
	}{
		{name: "demo", path: "/api/ui/v1/demo/start", wantKey: "demo-key", wantSet: true},
		{name: "subscriptions", path: "/subscriptions/plans", wantKey: "subs-key", wantSet: true},
		{name: "subscriptions wins over demo", path: "/api/ui/v1/demo/subscriptions", wantKey: "subs-key", wantSet: true},
		{
			name:    "external key propagated",
			path:    "/api/external/v1/jobs",
			headers: domain.Headers{"x-example.com-ext-api-key": "caller-key"},
			wantKey: "caller-key",
			wantSet: true,
		},
		{
			name:    "empty external key ignored",
			path:    "/api/external/v1/jobs",
			headers: domain.Headers{"x-example.com-ext-api-key": ""},
		},
		{name: "external without key", path: "/api/external/v1/jobs"},
		{name: "plain api", path: "/api/ui/v1/jobs"},
		{
			name:    "inbound api key untouched on plain path",
			path:    "/app/home",
			headers: domain.Headers{"x-api-key": "mine"},
			wantKey: "mine",
			wantSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(tt.path, tt.headers)
			a.Apply(req, tt.path)

			key, ok := req.Headers.Lookup(APIKey)
			assert.Equal(t, tt.wantSet, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestApplyCountry(t *testing.T) {
	a := newTestAugmenter()

	req := newRequest("/app", nil)
	a.Apply(req, "/app")
	country, ok := req.Headers.Lookup(Country)
	assert.True(t, ok)
	assert.Equal(t, "DE", country)

	req = newRequest("/app", domain.Headers{"x-country": "FR"})
	a.Apply(req, "/app")
	country, _ = req.Headers.Lookup(Country)
	assert.Equal(t, "FR", country)

	// present but empty is still present
	req = newRequest("/app", domain.Headers{"x-country": ""})
	a.Apply(req, "/app")
	country, _ = req.Headers.Lookup(Country)
	assert.Equal(t, "", country)

	req = newRequest("/app", nil)
	req.ViewerCountry = ""
	a.Apply(req, "/app")
	country, ok = req.Headers.Lookup(Country)
	assert.True(t, ok)
	assert.Equal(t, "", country)
}

func TestApplyForwardedAuth(t *testing.T) {
	a := newTestAugmenter()

	req := newRequest("/api/x", domain.Headers{"authorization": "Bearer abc"})
	a.Apply(req, "/api/x")
	forwarded, ok := req.Headers.Lookup("x-example.com-auth")
	assert.True(t, ok)
	assert.Equal(t, "Bearer abc", forwarded)

	req = newRequest("/api/x", domain.Headers{"authorization": "Bearer abc", "x-example.com-auth": "Bearer upstream"})
	a.Apply(req, "/api/x")
	forwarded, _ = req.Headers.Lookup("x-example.com-auth")
	assert.Equal(t, "Bearer upstream", forwarded)

	req = newRequest("/api/x", domain.Headers{"authorization": ""})
	a.Apply(req, "/api/x")
	_, ok = req.Headers.Lookup("x-example.com-auth")
	assert.False(t, ok)
}

func TestRewriteHost(t *testing.T) {
	a := newTestAugmenter()
	req := newRequest("/app", domain.Headers{"host": "edge.example.com"})

	a.RewriteHost(req, "blue-app.dev.example.com")
	host, _ := req.Headers.Lookup("Host")
	assert.Equal(t, "blue-app.dev.example.com", host)
}
