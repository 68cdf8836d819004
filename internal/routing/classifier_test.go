package routing

import (
	"testing"

	"github.com/mir00r/edge-router/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		path     string
		want     domain.RoutingDomain
		wantPath string
	}{
		{"/", domain.DomainApp, "/"},
		{"/app/dashboard", domain.DomainApp, "/app/dashboard"},
		{"/api", domain.DomainAPI, "/api"},
		{"/api/ui/v1/demo", domain.DomainAPI, "/api/ui/v1/demo"},
		{"/apis-docs", domain.DomainAPI, "/apis-docs"},
		{"/subscriptions", domain.DomainSubscriptions, "/subscriptions"},
		{"/subscriptions/x", domain.DomainSubscriptions, "/subscriptions/x"},
		{"/app/api", domain.DomainApp, "/app/api"},
		{"", domain.DomainApp, ""},
		{"/index.html/", domain.DomainApp, "/index.html/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, path := ClassifyPath(tt.path)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestClassifyStaticAssetsRewrittenUnderAppRoot(t *testing.T) {
	c := NewClassifier("example.com")

	for asset := range staticAssets {
		result := c.Classify(asset)
		assert.Equal(t, domain.DomainApp, result.Route.Domain)
		assert.True(t, result.Rewritten)
		assert.Equal(t, "/app"+asset, result.Path)
	}
}

func TestClassifierRouteTable(t *testing.T) {
	c := NewClassifier("example.com")

	app := c.Route(domain.DomainApp)
	assert.Equal(t, "X-EXAMPLE.COM-APP-COLOR", app.CookieName)
	assert.Equal(t, domain.OriginBlueApp, app.Blue)
	assert.Equal(t, domain.OriginGreenApp, app.Green)

	api := c.Route(domain.DomainAPI)
	assert.Equal(t, "X-EXAMPLE.COM-API-COLOR", api.CookieName)
	assert.Equal(t, domain.OriginBlueAPI, api.Blue)
	assert.Equal(t, domain.OriginGreenAPI, api.Green)

	subs := c.Route(domain.DomainSubscriptions)
	assert.Equal(t, "X-EXAMPLE.COM-SUBSCRIPTIONS-COLOR", subs.CookieName)
	assert.Equal(t, domain.OriginSubscriptions, subs.Blue)
	assert.Equal(t, domain.OriginSubscriptions, subs.Green)

	assert.Len(t, c.Routes(), 3)
}

func TestIsRoot(t *testing.T) {
	assert.True(t, IsRoot("/"))
	assert.False(t, IsRoot(""))
	assert.False(t, IsRoot("/app"))
}
