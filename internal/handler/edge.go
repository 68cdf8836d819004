package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/mir00r/edge-router/internal/domain"
	"github.com/mir00r/edge-router/internal/edge"
	rerrors "github.com/mir00r/edge-router/internal/errors"
	"github.com/mir00r/edge-router/internal/middleware"
	"github.com/mir00r/edge-router/pkg/logger"
)

// EdgeConfig configures the HTTP adapter around the routing pipeline
type EdgeConfig struct {
	// OriginScheme is the scheme used to reach origins, http or https
	OriginScheme string
	// ViewerCountryHeader carries the client's country, e.g. CloudFront-Viewer-Country
	ViewerCountryHeader string
	UpstreamTimeout     time.Duration
	// ClientIP extracts the address that is hashed; nil uses the direct peer
	ClientIP *middleware.ClientIPResolver
}

type routedKey struct{}

// routed is the pipeline output the proxy director forwards
type routed struct {
	request *domain.Request
	host    string
}

// EdgeHandler adapts net/http requests to the routing pipeline and reverse
// proxies them to the chosen origin
type EdgeHandler struct {
	pipeline *edge.Pipeline
	config   EdgeConfig
	logger   *logger.Logger
	proxy    *httputil.ReverseProxy
}

// NewEdgeHandler creates a new edge handler. transport may be nil.
func NewEdgeHandler(pipeline *edge.Pipeline, config EdgeConfig, transport http.RoundTripper, logger *logger.Logger) *EdgeHandler {
	if config.OriginScheme == "" {
		config.OriginScheme = "https"
	}
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 30 * time.Second
	}

	h := &EdgeHandler{
		pipeline: pipeline,
		config:   config,
		logger:   logger,
	}
	h.proxy = &httputil.ReverseProxy{
		Director:     h.direct,
		Transport:    transport,
		ErrorHandler: h.proxyError,
	}
	return h
}

// ServeHTTP routes a request and either redirects it or forwards it
func (h *EdgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := h.toRequest(r)

	var originHost string
	updater := edge.OriginUpdaterFunc(func(_ *domain.Request, update edge.OriginUpdate) {
		originHost = update.DomainName
	})

	result, err := h.pipeline.Process(r.Context(), req, updater)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if result.Redirect != nil {
		for name, value := range result.Redirect.Headers {
			w.Header().Set(name, value)
		}
		w.WriteHeader(result.Redirect.StatusCode)
		return
	}

	// the cookie path only rewrites the host header
	if originHost == "" {
		originHost, _ = result.Request.Headers.Lookup("host")
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.UpstreamTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, routedKey{}, &routed{request: result.Request, host: originHost})

	h.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// toRequest builds the request record handed to the pipeline
func (h *EdgeHandler) toRequest(r *http.Request) *domain.Request {
	headers := domain.NewHeaders(r.Header)
	headers.Set("host", r.Host)

	return &domain.Request{
		URI:           r.URL.Path,
		Headers:       headers,
		ClientAddress: h.config.ClientIP.ClientIP(r),
		ViewerCountry: r.Header.Get(h.config.ViewerCountryHeader),
	}
}

// direct rewrites the outgoing request from the routed request record
func (h *EdgeHandler) direct(out *http.Request) {
	rt, ok := out.Context().Value(routedKey{}).(*routed)
	if !ok {
		return
	}

	inboundHost := out.Host
	out.URL.Scheme = h.config.OriginScheme
	out.URL.Host = rt.host
	out.URL.Path = rt.request.URI
	out.URL.RawPath = ""
	out.Host = rt.host

	out.Header = make(http.Header, len(rt.request.Headers))
	for name, value := range rt.request.Headers {
		if name == "host" {
			continue
		}
		out.Header.Set(name, value)
	}
	if out.Header.Get("X-Forwarded-Host") == "" {
		out.Header.Set("X-Forwarded-Host", inboundHost)
	}

	h.logger.WithFields(map[string]interface{}{
		"request_id": middleware.RequestID(out.Context()),
		"target_url": out.URL.String(),
		"method":     out.Method,
	}).Debug("Forwarding request to origin")
}

func (h *EdgeHandler) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	h.writeError(w, r, rerrors.WrapError(err, rerrors.ErrCodeUpstreamFailed, "edge", "Origin request failed"))
}

// writeError writes a standardized error response
func (h *EdgeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := rerrors.GetHTTPStatusCode(err)
	requestID := middleware.RequestID(r.Context())

	h.logger.WithError(err).WithFields(map[string]interface{}{
		"request_id": requestID,
		"path":       r.URL.Path,
		"code":       code,
	}).Error("Edge request failed")

	writeJSON(w, code, ErrorResponse{
		Error:     http.StatusText(code),
		Code:      code,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// ErrorResponse represents error responses
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
