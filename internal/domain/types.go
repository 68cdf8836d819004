package domain

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Color identifies one of the two parallel deployments of a service
type Color int

const (
	// Blue is the first deployment slot
	Blue Color = iota
	// Green is the second deployment slot
	Green
)

// String returns the string representation of Color
func (c Color) String() string {
	switch c {
	case Blue:
		return "blue"
	case Green:
		return "green"
	default:
		return "unknown"
	}
}

// ParseColor accepts exactly "blue" or "green"
func ParseColor(value string) (Color, bool) {
	switch value {
	case "blue":
		return Blue, true
	case "green":
		return Green, true
	default:
		return Blue, false
	}
}

// StickyOverride is the optional color pin read from a domain cookie
type StickyOverride struct {
	Color Color
	Valid bool
}

// ParseStickyOverride turns a raw cookie value into an override; anything other
// than exactly "blue" or "green" yields an invalid override
func ParseStickyOverride(value string, present bool) StickyOverride {
	if !present {
		return StickyOverride{}
	}
	c, ok := ParseColor(value)
	return StickyOverride{Color: c, Valid: ok}
}

// RoutingDomain is the traffic class a request belongs to
type RoutingDomain int

const (
	// DomainApp is the application UI
	DomainApp RoutingDomain = iota
	// DomainAPI is the public and UI API
	DomainAPI
	// DomainSubscriptions is the subscriptions service
	DomainSubscriptions
)

// AllDomains lists every routing domain in a stable order
var AllDomains = []RoutingDomain{DomainApp, DomainAPI, DomainSubscriptions}

// String returns the string representation of RoutingDomain
func (d RoutingDomain) String() string {
	switch d {
	case DomainApp:
		return "app"
	case DomainAPI:
		return "api"
	case DomainSubscriptions:
		return "subscriptions"
	default:
		return "unknown"
	}
}

// ParseRoutingDomain parses the string form of a routing domain
func ParseRoutingDomain(value string) (RoutingDomain, bool) {
	for _, d := range AllDomains {
		if d.String() == value {
			return d, true
		}
	}
	return DomainApp, false
}

// ConfigKey returns the key under which the domain's live routing config is stored
func (d RoutingDomain) ConfigKey() string {
	return "routing-" + d.String()
}

// OriginID is a logical backend deployment target, resolved to a host through Origins
type OriginID string

const (
	OriginBlueAPI       OriginID = "blue_api"
	OriginGreenAPI      OriginID = "green_api"
	OriginBlueApp       OriginID = "blue_app"
	OriginGreenApp      OriginID = "green_app"
	OriginSubscriptions OriginID = "subscriptions"
)

// Origins maps origin identifiers to concrete host names
type Origins map[OriginID]string

// Host returns the host name for id
func (o Origins) Host(id OriginID) (string, bool) {
	host, ok := o[id]
	return host, ok && host != ""
}

// DomainRoute is the static per-domain routing table entry
type DomainRoute struct {
	Domain     RoutingDomain
	CookieName string
	Blue       OriginID
	Green      OriginID
}

// Origin returns the static origin for color
func (r DomainRoute) Origin(c Color) OriginID {
	if c == Green {
		return r.Green
	}
	return r.Blue
}

// Default routing config values used when the live config cannot be read
const (
	DefaultWeight     = 51
	DefaultVersionTag = "unknown"
)

// RoutingConfig is the live per-domain configuration
type RoutingConfig struct {
	Weight int    `json:"weight" yaml:"weight"`
	Blue   string `json:"blue" yaml:"blue"`
	Green  string `json:"green" yaml:"green"`
}

// DefaultRoutingConfig returns the fallback routing config
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Weight: DefaultWeight,
		Blue:   DefaultVersionTag,
		Green:  DefaultVersionTag,
	}
}

// InRange reports whether Weight is a valid percentage
func (c RoutingConfig) InRange() bool {
	return c.Weight >= 0 && c.Weight <= 100
}

// ActiveVersion returns the version tag of the color receiving the majority of traffic
func (c RoutingConfig) ActiveVersion() string {
	if c.Weight > 50 {
		return c.Green
	}
	return c.Blue
}

// Headers holds request headers keyed by lower-cased name
type Headers map[string]string

// NewHeaders builds Headers from an http.Header, joining repeated values the way
// browsers join Cookie headers
func NewHeaders(h http.Header) Headers {
	headers := make(Headers, len(h))
	for name, values := range h {
		sep := ", "
		if strings.EqualFold(name, "cookie") {
			sep = "; "
		}
		headers[strings.ToLower(name)] = strings.Join(values, sep)
	}
	return headers
}

// Lookup returns the header value and whether the header is present
func (h Headers) Lookup(name string) (string, bool) {
	value, ok := h[strings.ToLower(name)]
	return value, ok
}

// Set sets a header value
func (h Headers) Set(name, value string) {
	h[strings.ToLower(name)] = value
}

// Request is the inbound request record handed to the router by the edge environment
type Request struct {
	URI           string
	Headers       Headers
	ClientAddress string
	ViewerCountry string
}

// Redirect is the terminal response produced for the bare root path
type Redirect struct {
	StatusCode        int
	StatusDescription string
	Headers           Headers
}

// Location returns the redirect target
func (r *Redirect) Location() string {
	location, _ := r.Headers.Lookup("location")
	return location
}

// DecisionSource records which precedence tier produced a routing decision
type DecisionSource string

const (
	SourceCookie DecisionSource = "cookie"
	SourceWeight DecisionSource = "weight"
)

// Decision is the outcome of routing a single request
type Decision struct {
	Domain  RoutingDomain
	Origin  OriginID
	Host    string
	Source  DecisionSource
	Color   Color
	Cookie  string
	Hash    *int
	Config  *RoutingConfig
	Version string
}

// RequestContext contains request-specific information
type RequestContext struct {
	RequestID  string
	RemoteAddr string
	UserAgent  string
	Method     string
	Path       string
	StartTime  time.Time
}

// NewRequestContext creates a new RequestContext from an HTTP request
func NewRequestContext(r *http.Request) *RequestContext {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &RequestContext{
		RequestID:  requestID,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Method:     r.Method,
		Path:       r.URL.Path,
		StartTime:  time.Now(),
	}
}
