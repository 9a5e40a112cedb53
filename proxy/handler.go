package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"matchgate/fault"
	"matchgate/metrics"
	"matchgate/resolver"
)

// MatchResolver is the resolution core the routing layer dispatches to.
type MatchResolver interface {
	ResolveDirect(ctx context.Context, matchID uuid.UUID, queue string) (resolver.Resolved, error)
	ResolveViaTicket(ctx context.Context, matchID uuid.UUID, queue, ticketID, playerID string) (resolver.Resolved, error)
}

// Handler routes inbound client requests to the resolver and forwards them
// to the resolved game server.
type Handler struct {
	resolver MatchResolver
	forward  func(w http.ResponseWriter, r *http.Request, target *url.URL)
}

func NewHandler(res MatchResolver) *Handler {
	return &Handler{resolver: res, forward: forwardTo}
}

// Router builds the dispatch table. The rest segment is everything after
// the identifiers; it becomes the path on the game server.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/match/{queue}/{matchId}", h.direct)
	r.HandleFunc("/match/{queue}/{matchId}/{rest:.*}", h.direct)
	r.HandleFunc("/ticket/{queue}/{matchId}/{ticketId}/{playerId}", h.viaTicket)
	r.HandleFunc("/ticket/{queue}/{matchId}/{ticketId}/{playerId}/{rest:.*}", h.viaTicket)
	return r
}

func (h *Handler) direct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID, err := uuid.Parse(vars["matchId"])
	if err != nil {
		http.Error(w, "malformed match id", http.StatusBadRequest)
		return
	}

	start := time.Now()
	ep, err := h.resolver.ResolveDirect(r.Context(), matchID, vars["queue"])
	h.observe("direct", start, err)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	h.forward(w, r, TransformRequestURI(vars["rest"], r.URL.RawQuery, ep))
}

func (h *Handler) viaTicket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID, err := uuid.Parse(vars["matchId"])
	if err != nil {
		http.Error(w, "malformed match id", http.StatusBadRequest)
		return
	}

	start := time.Now()
	ep, err := h.resolver.ResolveViaTicket(r.Context(), matchID, vars["queue"], vars["ticketId"], vars["playerId"])
	h.observe("ticket", start, err)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	h.forward(w, r, TransformRequestURI(vars["rest"], r.URL.RawQuery, ep))
}

func (h *Handler) observe(mode string, start time.Time, err error) {
	metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil {
		result = "failure"
		if k, ok := fault.KindOf(err); ok {
			result = string(k)
		}
	}
	metrics.ResolutionsTotal.WithLabelValues(mode, result).Inc()
}

// writeFault maps a resolution failure to its external status. The backend
// diagnostic stays in the logs; the client sees only the status text.
func (h *Handler) writeFault(w http.ResponseWriter, r *http.Request, err error) {
	status := fault.HTTPStatus(err)
	log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("proxy: resolution failed")
	http.Error(w, http.StatusText(status), status)
}

// forwardTo hands the request to the forwarding engine. Headers, body and
// method pass through untouched; only the target URI is rewritten.
func forwardTo(w http.ResponseWriter, r *http.Request, target *url.URL) {
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL = target
			pr.Out.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error().Err(err).Str("target", target.String()).Msg("proxy: forward failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	log.Debug().Str("target", target.String()).Str("method", r.Method).Msg("proxy: forwarding")
	rp.ServeHTTP(w, r)
}
