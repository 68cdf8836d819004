// Package edge runs the per-request routing pipeline: root redirect, path
// classification, sticky cookie lookup, weight resolution, the routing decision,
// header augmentation and finally origin application.
package edge

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mir00r/edge-router/internal/domain"
	rerrors "github.com/mir00r/edge-router/internal/errors"
	"github.com/mir00r/edge-router/internal/headers"
	"github.com/mir00r/edge-router/internal/routing"
	"github.com/mir00r/edge-router/pkg/logger"
	"github.com/sirupsen/logrus"
)

// NotApplicable is logged for the hash and weight of cookie-routed requests
const NotApplicable = "N/A"

// Config holds the static values of an edge deployment
type Config struct {
	EnvName             string
	BaseDomain          string
	Origins             domain.Origins
	DemoAPIKey          string
	SubscriptionsAPIKey string
}

// RedirectLocation is where the bare root path is sent
func (c Config) RedirectLocation() string {
	return fmt.Sprintf("https://%s.%s%s", c.EnvName, c.BaseDomain, routing.AppRoot)
}

// DefaultOrigins derives the origin host table for env and baseDomain
func DefaultOrigins(env, baseDomain string) domain.Origins {
	host := func(name string) string {
		return fmt.Sprintf("%s.%s.%s", name, env, baseDomain)
	}
	return domain.Origins{
		domain.OriginBlueAPI:       host("blue-api"),
		domain.OriginGreenAPI:      host("green-api"),
		domain.OriginBlueApp:       host("blue-app"),
		domain.OriginGreenApp:      host("green-app"),
		domain.OriginSubscriptions: host("subscriptions"),
	}
}

// OriginUpdate is the argument of the environment's origin substitution primitive
type OriginUpdate struct {
	DomainName string
}

// OriginUpdater switches the origin a request is forwarded to
type OriginUpdater interface {
	UpdateRequestOrigin(req *domain.Request, update OriginUpdate)
}

// OriginUpdaterFunc adapts a function to OriginUpdater
type OriginUpdaterFunc func(req *domain.Request, update OriginUpdate)

// UpdateRequestOrigin calls f(req, update)
func (f OriginUpdaterFunc) UpdateRequestOrigin(req *domain.Request, update OriginUpdate) {
	f(req, update)
}

// ConfigResolver returns the live routing config of a domain; it never fails
type ConfigResolver interface {
	Resolve(ctx context.Context, d domain.RoutingDomain) domain.RoutingConfig
}

// Recorder receives decision observations; *metrics.Metrics implements it
type Recorder interface {
	RecordDecision(domain, color, source string)
	RecordRedirect()
}

// Result is the pipeline output: either a redirect or the mutated request and
// the decision that produced it
type Result struct {
	Redirect *domain.Redirect
	Request  *domain.Request
	Decision *domain.Decision
}

// Pipeline routes requests. It is stateless and safe for concurrent use.
type Pipeline struct {
	config     Config
	classifier *routing.Classifier
	resolver   ConfigResolver
	augmenter  *headers.Augmenter
	logger     *logger.Logger
	recorder   Recorder
}

// NewPipeline creates a pipeline. recorder may be nil.
func NewPipeline(config Config, resolver ConfigResolver, log *logger.Logger, recorder Recorder) *Pipeline {
	return &Pipeline{
		config:     config,
		classifier: routing.NewClassifier(config.BaseDomain),
		resolver:   resolver,
		augmenter: headers.NewAugmenter(headers.Config{
			BaseDomain:          config.BaseDomain,
			DemoAPIKey:          config.DemoAPIKey,
			SubscriptionsAPIKey: config.SubscriptionsAPIKey,
		}),
		logger:   log,
		recorder: recorder,
	}
}

// Classifier returns the static route table used by the pipeline
func (p *Pipeline) Classifier() *routing.Classifier {
	return p.classifier
}

// Process routes req, mutating it in place. On the weighted path the chosen
// origin is handed to updater; on the cookie path only the host header changes.
// The only error is an origin with no configured host.
func (p *Pipeline) Process(ctx context.Context, req *domain.Request, updater OriginUpdater) (*Result, error) {
	if routing.IsRoot(req.URI) {
		redirect := p.redirect()
		p.logger.WithField("location", redirect.Location()).Debug("Redirecting root request")
		if p.recorder != nil {
			p.recorder.RecordRedirect()
		}
		return &Result{Redirect: redirect}, nil
	}

	path := req.URI
	class := p.classifier.Classify(path)
	if class.Rewritten {
		req.URI = class.Path
	}

	decision, err := p.decide(ctx, class.Route, req)
	if err != nil {
		return nil, err
	}

	p.augmenter.Apply(req, path)

	switch decision.Source {
	case domain.SourceCookie:
		p.augmenter.RewriteHost(req, decision.Host)
	case domain.SourceWeight:
		if updater != nil {
			updater.UpdateRequestOrigin(req, OriginUpdate{DomainName: decision.Host})
		}
	}

	p.logDecision(req, decision)
	if p.recorder != nil {
		p.recorder.RecordDecision(decision.Domain.String(), decision.Color.String(), string(decision.Source))
	}

	return &Result{Request: req, Decision: decision}, nil
}

// Decide computes the decision for req without mutating it
func (p *Pipeline) Decide(ctx context.Context, req *domain.Request) (*domain.Decision, error) {
	class := p.classifier.Classify(req.URI)
	return p.decide(ctx, class.Route, req)
}

func (p *Pipeline) decide(ctx context.Context, route domain.DomainRoute, req *domain.Request) (*domain.Decision, error) {
	rawCookie, present := req.Headers.Lookup("cookie")
	cookie, found := routing.ExtractCookie(rawCookie, present, route.CookieName)
	sticky := domain.ParseStickyOverride(cookie, found)

	// the store is only consulted when no valid sticky cookie is present
	var cfg *domain.RoutingConfig
	var live domain.RoutingConfig
	if !sticky.Valid {
		live = p.resolver.Resolve(ctx, route.Domain)
		cfg = &live
	}

	outcome := routing.Decide(route, sticky, live, req.ClientAddress)

	host, ok := p.config.Origins.Host(outcome.Origin)
	if !ok {
		return nil, rerrors.NewOriginNotFoundError(string(outcome.Origin))
	}

	decision := &domain.Decision{
		Domain: route.Domain,
		Origin: outcome.Origin,
		Host:   host,
		Source: outcome.Source,
		Color:  outcome.Color,
		Cookie: cookie,
		Hash:   outcome.Hash,
		Config: cfg,
	}
	if cfg != nil {
		decision.Version = cfg.ActiveVersion()
	}
	return decision, nil
}

func (p *Pipeline) redirect() *domain.Redirect {
	return &domain.Redirect{
		StatusCode:        http.StatusFound,
		StatusDescription: "Found",
		Headers: domain.Headers{
			"location": p.config.RedirectLocation(),
		},
	}
}

func (p *Pipeline) logDecision(req *domain.Request, d *domain.Decision) {
	hash, weight := NotApplicable, NotApplicable
	if d.Hash != nil {
		hash = strconv.Itoa(*d.Hash)
	}
	if d.Config != nil {
		weight = strconv.Itoa(d.Config.Weight)
	}

	p.logger.DecisionLogger(d.Domain.String()).WithFields(logrus.Fields{
		"client_ip": req.ClientAddress,
		"hash":      hash,
		"weight":    weight,
		"route":     d.Host,
		"uri":       req.URI,
		"source":    string(d.Source),
		"cookie":    d.Cookie,
		"version":   d.Version,
	}).Infof("Client IP: %s, Hash: %s, Weight: %s, Route: %s, URI: %s",
		req.ClientAddress, hash, weight, d.Host, req.URI)
}
