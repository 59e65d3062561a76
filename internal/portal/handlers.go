package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sokonet/hotspot-portal/internal/metrics"
	"github.com/sokonet/hotspot-portal/internal/payment"
	"github.com/sokonet/hotspot-portal/internal/storage"
)

type payRequest struct {
	Phone  string `json:"phone"`
	PlanID int64  `json:"plan_id"`
	MAC    string `json:"mac"`
	IP     string `json:"ip"`
	Router string `json:"router"`
}

type payResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Attempt   int    `json:"attempt"`
	PlanName  string `json:"plan_name,omitempty"`
	Expiry    string `json:"expiry,omitempty"`
	Message   string `json:"message,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	_, raw, err := s.billing.Plans(r.Context())
	if err != nil {
		s.log.Error("fetch plans", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:   "upstream",
			Message: "Unable to load available plans. Please try again.",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: "Invalid request body.",
		})
		return
	}

	identity := req.Router
	if identity == "" {
		identity = s.cfg.RouterIdentity
	}

	// A failed or pending lookup leaves RouterID zero, which Submit turns
	// into ErrRouterNotReady before any charge is attempted.
	routerID, _ := s.resolver.Resolve(r.Context(), identity)

	device := payment.Device{
		MAC:      req.MAC,
		IP:       req.IP,
		RouterID: routerID,
	}

	correlationID, err := s.initiator.Submit(r.Context(), req.Phone, payment.Plan{ID: req.PlanID}, device)
	if err != nil {
		kind := payment.Kind(err)
		metrics.IncSubmission(kind)
		s.log.Warn("payment submission failed", "kind", kind, "error", err)
		writeJSON(w, submitStatus(kind), errorResponse{
			Error:   kind,
			Message: payment.UserMessage(err),
		})
		return
	}

	metrics.IncSubmission("accepted")

	phone := payment.NormalizePhone(req.Phone)
	if err := s.storage.RememberPhone(req.MAC, phone); err != nil {
		s.log.Error("remember phone", "error", err)
	}

	// The audit row exists before polling starts, so a fast terminal
	// transition always finds it.
	sessionID := uuid.NewString()
	if err := s.storage.CreateSession(&storage.SessionRecord{
		ID:            sessionID,
		CorrelationID: correlationID,
		MAC:           req.MAC,
		Phone:         phone,
		PlanID:        req.PlanID,
		State:         string(payment.StatePending),
	}); err != nil {
		s.log.Error("persist session", "error", err)
	}

	// Polling outlives the submit request, so it runs off the request context.
	sess := s.sessions.Begin(context.Background(), sessionID, req.MAC, correlationID, s.observe(phone))

	writeJSON(w, http.StatusAccepted, payResponse{
		SessionID: sess.ID,
		State:     string(sess.Snapshot().State),
	})
}

// observe records terminal states: audit row, metrics, operator alert.
func (s *Server) observe(phone string) payment.Observer {
	return func(sess *payment.Session, snap payment.Snapshot) {
		if !snap.State.Terminal() {
			return
		}

		planName, expiry := "", ""
		if snap.Result != nil {
			planName = snap.Result.PlanName
			expiry = snap.Result.Expiry
		}

		if err := s.storage.FinishSession(sess.ID, string(snap.State), planName, expiry, snap.Attempt, snap.Detail); err != nil {
			s.log.Error("finish session", "session_id", sess.ID, "error", err)
		}

		metrics.IncPollOutcome(string(snap.State))
		metrics.ObserveAttempts(snap.Attempt)

		if s.alerts != nil {
			s.alerts.PaymentOutcome(context.Background(), phone, snap)
		}
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if sess, ok := s.sessions.Get(id); ok {
		snap := sess.Snapshot()
		resp := sessionResponse{
			SessionID: id,
			State:     string(snap.State),
			Attempt:   snap.Attempt,
			Message:   snap.Detail,
		}
		if snap.Result != nil {
			resp.PlanName = snap.Result.PlanName
			resp.Expiry = snap.Result.Expiry
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// Sessions from before a restart are only in the audit table.
	rec, err := s.storage.GetSession(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: "Unknown payment session.",
		})
		return
	}
	if err != nil {
		s.log.Error("load session", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal",
			Message: "Something went wrong.",
		})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: rec.ID,
		State:     rec.State,
		Attempt:   rec.Attempts,
		PlanName:  rec.PlanName,
		Expiry:    rec.Expiry,
		Message:   rec.Detail,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.sessions.Cancel(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePhone(w http.ResponseWriter, r *http.Request) {
	mac := r.URL.Query().Get("mac")
	if mac == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: "mac is required",
		})
		return
	}

	phone, err := s.storage.LastPhone(mac)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "no phone on record"})
		return
	}
	if err != nil {
		s.log.Error("load phone", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "Something went wrong."})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"phone": phone})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// submitStatus maps an error kind to the HTTP status of the pay endpoint.
func submitStatus(kind string) int {
	switch kind {
	case "invalid_phone", "invalid_plan", "rejected":
		return http.StatusBadRequest
	case "router_not_ready":
		return http.StatusServiceUnavailable
	case "timeout":
		return http.StatusGatewayTimeout
	case "network", "missing_correlation_id":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
