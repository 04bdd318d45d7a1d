// Package http exposes the routing engine over a small JSON API. The
// PaymentRoute type is the wire contract; optional fields are omitted when
// absent, never emitted as null.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	payroute "github.com/lanternpay/payroute-go"
	"github.com/lanternpay/payroute-go/logger"
)

// RouteRequest is the discovery request body.
type RouteRequest struct {
	From   []string                `json:"from"`
	To     string                  `json:"to" validate:"required"`
	Amount string                  `json:"amount" validate:"required"`
	Token  string                  `json:"token" validate:"required"`
	Accept []payroute.AcceptTarget `json:"accept"`
}

// RoutesResponse is the discovery response body.
type RoutesResponse struct {
	Routes []payroute.PaymentRoute `json:"routes"`
}

// BestRouteResponse is the best-route response body. Route is absent when
// no route exists.
type BestRouteResponse struct {
	Route *payroute.PaymentRoute `json:"route,omitempty"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the routing API.
type Handler struct {
	finder   *payroute.RouteFinder
	validate *validator.Validate
	log      logger.Logger
}

// NewHandler creates a handler over the given finder.
func NewHandler(finder *payroute.RouteFinder, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Handler{
		finder:   finder,
		validate: validator.New(),
		log:      log,
	}
}

// Router returns a chi router exposing the API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/routes", h.handleFindRoutes)
	r.Post("/v1/routes/best", h.handleFindBestRoute)
	return r
}

func (h *Handler) handleFindRoutes(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	routes, err := h.finder.FindAllRoutes(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RoutesResponse{Routes: routes})
}

func (h *Handler) handleFindBestRoute(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	route, err := h.finder.FindBestRoute(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BestRouteResponse{Route: route})
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (*payroute.PaymentRequest, bool) {
	var body RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return nil, false
	}
	if err := h.validate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return &payroute.PaymentRequest{
		From:   body.From,
		To:     body.To,
		Amount: body.Amount,
		Token:  body.Token,
		Accept: body.Accept,
	}, true
}

// writeEngineError maps engine errors to HTTP statuses: uninterpretable
// requests are the caller's fault, gateway outages are upstream failures.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payroute.ErrInvalidRequest):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, payroute.ErrGatewayUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		h.log.Error("route discovery failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
