package routing

import (
	"fmt"
	"strings"

	"github.com/mir00r/edge-router/internal/domain"
)

// AppRoot is the path segment the application UI is served under
const AppRoot = "/app"

// staticAssets are root-level paths that belong to the application UI and are
// rewritten under AppRoot before forwarding
var staticAssets = map[string]struct{}{
	"/index.html":                   {},
	"/favicon.ico":                  {},
	"/robots.txt":                   {},
	"/sitemap.xml":                  {},
	"/llms.txt":                     {},
	"/llms-full.txt":                {},
	"/web-app-manifest-512x512.png": {},
	"/web-app-manifest-192x192.png": {},
}

// Classification is the result of classifying a request path
type Classification struct {
	Route domain.DomainRoute
	// Path is the path to forward, equal to the input unless it was rewritten
	Path      string
	Rewritten bool
}

// Classifier maps request paths to routing domains and their static route table
type Classifier struct {
	routes map[domain.RoutingDomain]domain.DomainRoute
}

// NewClassifier builds the static route table. Cookie names are derived from the
// base domain, e.g. X-EXAMPLE.COM-API-COLOR.
func NewClassifier(baseDomain string) *Classifier {
	upper := strings.ToUpper(baseDomain)
	cookie := func(kind string) string {
		return fmt.Sprintf("X-%s-%s-COLOR", upper, kind)
	}

	return &Classifier{
		routes: map[domain.RoutingDomain]domain.DomainRoute{
			domain.DomainApp: {
				Domain:     domain.DomainApp,
				CookieName: cookie("APP"),
				Blue:       domain.OriginBlueApp,
				Green:      domain.OriginGreenApp,
			},
			domain.DomainAPI: {
				Domain:     domain.DomainAPI,
				CookieName: cookie("API"),
				Blue:       domain.OriginBlueAPI,
				Green:      domain.OriginGreenAPI,
			},
			// subscriptions has a single deployment; both colors land on it
			domain.DomainSubscriptions: {
				Domain:     domain.DomainSubscriptions,
				CookieName: cookie("SUBSCRIPTIONS"),
				Blue:       domain.OriginSubscriptions,
				Green:      domain.OriginSubscriptions,
			},
		},
	}
}

// Route returns the static route for d
func (c *Classifier) Route(d domain.RoutingDomain) domain.DomainRoute {
	return c.routes[d]
}

// Routes returns every static route in domain order
func (c *Classifier) Routes() []domain.DomainRoute {
	routes := make([]domain.DomainRoute, 0, len(domain.AllDomains))
	for _, d := range domain.AllDomains {
		routes = append(routes, c.routes[d])
	}
	return routes
}

// Classify maps path to its routing domain. It is total over all inputs.
func (c *Classifier) Classify(path string) Classification {
	d, rewritten := ClassifyPath(path)
	return Classification{
		Route:     c.routes[d],
		Path:      rewritten,
		Rewritten: rewritten != path,
	}
}

// ClassifyPath returns the routing domain for path and the path to forward
func ClassifyPath(path string) (domain.RoutingDomain, string) {
	if _, ok := staticAssets[path]; ok {
		return domain.DomainApp, AppRoot + path
	}

	switch {
	case strings.HasPrefix(path, "/api"):
		return domain.DomainAPI, path
	case strings.HasPrefix(path, "/subscriptions"):
		return domain.DomainSubscriptions, path
	default:
		return domain.DomainApp, path
	}
}

// IsRoot reports whether path is the bare root, which is always redirected
func IsRoot(path string) bool {
	return path == "/"
}
