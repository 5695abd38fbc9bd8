package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Sessions — POST /v1/sessions
// ============================================================

type startSessionRequest struct {
	CustomerID string   `json:"customer_id"`
	OrderIDs   []string `json:"order_ids"`
}

type startSessionResponse struct {
	SessionID string              `json:"session_id"`
	Status    string              `json:"status"`
	Customer  domain.CustomerInfo `json:"customer"`
	Welcome   string              `json:"welcome"`
}

func startSessionHandler(svc *service.SupportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sessions")
		defer span.End()

		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.CustomerID) == "" {
			writeError(w, http.StatusBadRequest, "customer_id is required")
			return
		}
		span.SetAttributes(attribute.String("customer.id", req.CustomerID))

		result, err := svc.StartSession(ctx, req.CustomerID, req.OrderIDs)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, startSessionResponse{
			SessionID: result.Session.ID,
			Status:    string(result.Session.Status),
			Customer:  result.Session.Customer,
			Welcome:   result.Welcome,
		})
	}
}

// ============================================================
// Messages — POST /v1/sessions/{sessionId}/messages
// ============================================================

type postMessageRequest struct {
	Message string `json:"message"`
}

type postMessageResponse struct {
	Response  string `json:"response"`
	Escalated bool   `json:"escalated"`
	Priority  string `json:"priority,omitempty"`
}

func postMessageHandler(svc *service.SupportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sessions/{sessionId}/messages")
		defer span.End()

		sessionID := chi.URLParam(r, "sessionId")
		span.SetAttributes(attribute.String("session.id", sessionID))

		var req postMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

		result, err := svc.PostMessage(ctx, sessionID, req.Message)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, postMessageResponse{
			Response:  result.Response,
			Escalated: result.Escalated,
			Priority:  string(result.Priority),
		})
	}
}

// ============================================================
// Escalation — POST /v1/sessions/{sessionId}/escalate
// ============================================================

func escalateHandler(svc *service.SupportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sessions/{sessionId}/escalate")
		defer span.End()

		sessionID := chi.URLParam(r, "sessionId")
		result, err := svc.Escalate(ctx, sessionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, postMessageResponse{
			Response:  result.Response,
			Escalated: result.Escalated,
			Priority:  string(result.Priority),
		})
	}
}

// ============================================================
// Transcript — GET /v1/sessions/{sessionId}
// ============================================================

func getSessionHandler(svc *service.SupportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sessions/{sessionId}")
		defer span.End()

		sessionID := chi.URLParam(r, "sessionId")
		sess, err := svc.GetSession(ctx, sessionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// ============================================================
// End — DELETE /v1/sessions/{sessionId}
// ============================================================

func endSessionHandler(svc *service.SupportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/sessions/{sessionId}")
		defer span.End()

		sessionID := chi.URLParam(r, "sessionId")
		if err := svc.EndSession(ctx, sessionID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
