package api

import (
	"net/http"

	"github.com/shwetankt93/liftlab-assignment/pkg/analytics"
	"github.com/shwetankt93/liftlab-assignment/pkg/httputil"
	"github.com/shwetankt93/liftlab-assignment/pkg/observability"
)

// handleIngestEvent accepts one analytics event. Validation failures get a
// 400 with the failing rule's message; an accepted event gets a 200 before
// its store writes complete.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var event analytics.Event
	if err := httputil.ParseJSON(r, &event); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.events.Process(r.Context(), event)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, result)
		return
	}
	httputil.WriteSuccess(w, result)
}

// handleGetMetrics serves the current metrics snapshot. A failure with the
// backing store unreachable maps to 503 so callers can tell an outage from
// a server bug; anything else is an opaque 500.
func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.metricsSvc.CurrentMetrics(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("metrics snapshot failed")
		if s.storeUnavailable(r) {
			httputil.WriteServiceUnavailable(w, "metrics temporarily unavailable")
			return
		}
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, snapshot)
}

func (s *Server) storeUnavailable(r *http.Request) bool {
	if s.health == nil {
		return false
	}
	return s.health.Check(r.Context()).Status == observability.StatusUnhealthy
}
