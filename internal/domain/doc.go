/*
Package domain contains the core entities shared by the edge router.

Colors and routing domains are closed types: a request belongs to exactly one
RoutingDomain, and a routing decision always lands on one Color. Every domain has a
static DomainRoute naming its sticky cookie and its blue and green origins:

	route := domain.DomainRoute{
		Domain:     domain.DomainAPI,
		CookieName: "X-EXAMPLE.COM-API-COLOR",
		Blue:       domain.OriginBlueAPI,
		Green:      domain.OriginGreenAPI,
	}
	route.Origin(domain.Green) // green_api

RoutingConfig is the live, per-domain split read from the key-value store under
RoutingDomain.ConfigKey. Its Weight is compared against a per-client hash; it is never
clamped, so a malformed weight keeps its literal comparison semantics.

Request is the mutable record the edge environment hands to the router. Headers are
stored lower-cased and read through Lookup so an absent header is never confused with
an empty one.
*/
package domain
