package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mir00r/edge-router/internal/domain"
	"github.com/mir00r/edge-router/internal/edge"
	rerrors "github.com/mir00r/edge-router/internal/errors"
	"github.com/mir00r/edge-router/internal/middleware"
	"github.com/mir00r/edge-router/internal/store"
	"github.com/mir00r/edge-router/internal/weights"
	"github.com/mir00r/edge-router/pkg/logger"
)

// maxPayloadBytes bounds admin request bodies
const maxPayloadBytes = 4096

// AdminHandler provides administrative API endpoints
type AdminHandler struct {
	pipeline *edge.Pipeline
	resolver *weights.Resolver
	writer   store.Writer
	origins  domain.Origins
	logger   *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(pipeline *edge.Pipeline, resolver *weights.Resolver, writer store.Writer, origins domain.Origins, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		pipeline: pipeline,
		resolver: resolver,
		writer:   writer,
		origins:  origins,
		logger:   logger.AdminLogger(),
	}
}

// RoutingResponse represents the effective routing config of a domain
type RoutingResponse struct {
	Domain        string               `json:"domain"`
	Key           string               `json:"key"`
	Config        domain.RoutingConfig `json:"config"`
	ActiveVersion string               `json:"active_version"`
	// Source is "store" or "default"
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

// DecisionResponse represents a dry-run routing decision
type DecisionResponse struct {
	Domain  string                `json:"domain"`
	Origin  string                `json:"origin"`
	Host    string                `json:"host"`
	Color   string                `json:"color"`
	Source  string                `json:"source"`
	Hash    *int                  `json:"hash,omitempty"`
	Config  *domain.RoutingConfig `json:"config,omitempty"`
	Version string                `json:"version,omitempty"`
}

// OriginResponse represents the static route of one domain
type OriginResponse struct {
	Domain     string `json:"domain"`
	CookieName string `json:"cookie_name"`
	Key        string `json:"key"`
	BlueHost   string `json:"blue_host"`
	GreenHost  string `json:"green_host"`
}

// RegisterRoutes mounts the admin endpoints on router
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/routing/{domain}", h.GetRoutingHandler).Methods(http.MethodGet)
	router.HandleFunc("/routing/{domain}", h.PutRoutingHandler).Methods(http.MethodPut)
	router.HandleFunc("/decide", h.DecideHandler).Methods(http.MethodGet)
	router.HandleFunc("/origins", h.ListOriginsHandler).Methods(http.MethodGet)
}

// GetRoutingHandler handles GET /admin/routing/{domain}
func (h *AdminHandler) GetRoutingHandler(w http.ResponseWriter, r *http.Request) {
	d, ok := h.routingDomain(w, r)
	if !ok {
		return
	}

	cfg, err := h.resolver.Lookup(r.Context(), d)
	response := RoutingResponse{
		Domain:        d.String(),
		Key:           d.ConfigKey(),
		Config:        cfg,
		ActiveVersion: cfg.ActiveVersion(),
		Source:        "store",
	}
	if err != nil {
		response.Source = "default"
		response.Reason = string(rerrors.GetErrorCode(err))
	}

	writeJSON(w, http.StatusOK, response)
}

// PutRoutingHandler handles PUT /admin/routing/{domain}. The body uses the
// stored payload format; single-quoted payloads are accepted.
func (h *AdminHandler) PutRoutingHandler(w http.ResponseWriter, r *http.Request) {
	d, ok := h.routingDomain(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.writeErrorResponse(w, r, "Failed to read request body", http.StatusBadRequest)
		return
	}

	cfg, err := weights.ParseRoutingConfig(string(body))
	if err != nil {
		h.writeErrorResponse(w, r, "Invalid routing config: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !cfg.InRange() {
		h.writeErrorResponse(w, r, "weight must be between 0 and 100", http.StatusBadRequest)
		return
	}

	payload, err := weights.FormatRoutingConfig(cfg)
	if err != nil {
		h.writeErrorResponse(w, r, "Invalid routing config: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.writer.Put(r.Context(), d.ConfigKey(), payload); err != nil {
		storeErr := rerrors.NewStoreError(d.ConfigKey(), err)
		h.writeErrorResponse(w, r, storeErr.Error(), storeErr.HTTPStatusCode())
		return
	}

	subject := ""
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok {
		subject = claims.Subject
	}
	h.logger.WithFields(map[string]interface{}{
		"action":  "put_routing",
		"domain":  d.String(),
		"weight":  cfg.Weight,
		"blue":    cfg.Blue,
		"green":   cfg.Green,
		"subject": subject,
	}).Info("Updated routing config")

	writeJSON(w, http.StatusOK, RoutingResponse{
		Domain:        d.String(),
		Key:           d.ConfigKey(),
		Config:        cfg,
		ActiveVersion: cfg.ActiveVersion(),
		Source:        "store",
	})
}

// DecideHandler handles GET /admin/decide?path=&ip=&cookie=
func (h *AdminHandler) DecideHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	path := query.Get("path")
	if !strings.HasPrefix(path, "/") {
		h.writeErrorResponse(w, r, "path must start with /", http.StatusBadRequest)
		return
	}

	headers := domain.Headers{}
	if cookie := query.Get("cookie"); cookie != "" {
		headers.Set("cookie", cookie)
	}

	decision, err := h.pipeline.Decide(r.Context(), &domain.Request{
		URI:           path,
		Headers:       headers,
		ClientAddress: query.Get("ip"),
	})
	if err != nil {
		h.writeErrorResponse(w, r, err.Error(), rerrors.GetHTTPStatusCode(err))
		return
	}

	writeJSON(w, http.StatusOK, NewDecisionResponse(decision))
}

// NewDecisionResponse converts a decision for API output
func NewDecisionResponse(d *domain.Decision) DecisionResponse {
	return DecisionResponse{
		Domain:  d.Domain.String(),
		Origin:  string(d.Origin),
		Host:    d.Host,
		Color:   d.Color.String(),
		Source:  string(d.Source),
		Hash:    d.Hash,
		Config:  d.Config,
		Version: d.Version,
	}
}

// ListOriginsHandler handles GET /admin/origins
func (h *AdminHandler) ListOriginsHandler(w http.ResponseWriter, r *http.Request) {
	routes := h.pipeline.Classifier().Routes()
	response := make([]OriginResponse, 0, len(routes))
	for _, route := range routes {
		blue, _ := h.origins.Host(route.Blue)
		green, _ := h.origins.Host(route.Green)
		response = append(response, OriginResponse{
			Domain:     route.Domain.String(),
			CookieName: route.CookieName,
			Key:        route.Domain.ConfigKey(),
			BlueHost:   blue,
			GreenHost:  green,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *AdminHandler) routingDomain(w http.ResponseWriter, r *http.Request) (domain.RoutingDomain, bool) {
	name := mux.Vars(r)["domain"]
	d, ok := domain.ParseRoutingDomain(name)
	if !ok {
		h.writeErrorResponse(w, r, "unknown routing domain: "+name, http.StatusNotFound)
	}
	return d, ok
}

// writeErrorResponse writes a standardized error response
func (h *AdminHandler) writeErrorResponse(w http.ResponseWriter, r *http.Request, message string, code int) {
	requestID := middleware.RequestID(r.Context())

	writeJSON(w, code, ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now(),
		RequestID: requestID,
	})

	h.logger.WithFields(map[string]interface{}{
		"error":      message,
		"code":       code,
		"request_id": requestID,
	}).Error("API error response")
}
