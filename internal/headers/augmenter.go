// Package headers attaches the auxiliary headers the origins expect: rate-limit
// API keys, the viewer country and a forwarded copy of the authorization header.
package headers

import (
	"strings"

	"github.com/mir00r/edge-router/internal/domain"
)

// Header names that do not depend on the base domain
const (
	APIKey        = "x-api-key"
	Country       = "x-country"
	Authorization = "authorization"
	Host          = "host"
)

// Path fragments that select an API key
const (
	DemoPath          = "/api/ui/v1/demo"
	SubscriptionsPath = "/subscriptions"
	ExternalPath      = "/api/external/v1"
)

// Config holds the static values the augmenter writes
type Config struct {
	BaseDomain          string
	DemoAPIKey          string
	SubscriptionsAPIKey string
}

// Augmenter mutates outgoing request headers after the routing decision
type Augmenter struct {
	config        Config
	extAPIKey     string
	forwardedAuth string
}

// NewAugmenter creates an augmenter for the given base domain and keys
func NewAugmenter(config Config) *Augmenter {
	lower := strings.ToLower(config.BaseDomain)
	return &Augmenter{
		config:        config,
		extAPIKey:     "x-" + lower + "-ext-api-key",
		forwardedAuth: "x-" + lower + "-auth",
	}
}

// Apply runs every augmentation against req. path is the inbound path, before
// any static asset rewrite. Later API key rules overwrite earlier ones.
func (a *Augmenter) Apply(req *domain.Request, path string) {
	h := req.Headers

	if strings.Contains(path, DemoPath) {
		h.Set(APIKey, a.config.DemoAPIKey)
	}

	if strings.Contains(path, SubscriptionsPath) {
		h.Set(APIKey, a.config.SubscriptionsAPIKey)
	}

	if strings.Contains(path, ExternalPath) {
		if key, ok := h.Lookup(a.extAPIKey); ok && key != "" {
			h.Set(APIKey, key)
		}
	}

	if _, ok := h.Lookup(Country); !ok {
		h.Set(Country, req.ViewerCountry)
	}

	if auth, ok := h.Lookup(Authorization); ok && auth != "" {
		if _, forwarded := h.Lookup(a.forwardedAuth); !forwarded {
			h.Set(a.forwardedAuth, auth)
		}
	}
}

// RewriteHost points the host header at the resolved origin
func (a *Augmenter) RewriteHost(req *domain.Request, host string) {
	req.Headers.Set(Host, host)
}
