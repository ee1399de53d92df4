package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nyashahama/bottled/internal/bottle"
	"github.com/nyashahama/bottled/internal/notify"
	"github.com/nyashahama/bottled/internal/worker"
)

// ─── POST /functions/v1/deliver-bottles ──────────────────────────────────────

// handleDeliverBottles runs one delivery sweep. It is invoked by an external
// scheduler; the request body is ignored.
//
// 200 {delivered, failed} or {delivered: 0, failed: 0, message}. Per-bottle
// failures are reported in the counts, never as an error status.
func (s *Server) handleDeliverBottles(w http.ResponseWriter, r *http.Request) {
	if s.sweep == nil {
		respondErr(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	res, err := s.sweep.Run(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, worker.ErrSweepInProgress):
		respondErr(w, http.StatusConflict, "Sweep already in progress")
		return
	case errors.Is(err, bottle.ErrConfiguration):
		s.logger.Error("deliver-bottles: configuration error", "error", err, logField(r))
		respondErr(w, http.StatusInternalServerError, "Server configuration error")
		return
	default:
		s.logger.Error("deliver-bottles: fetch failed", "error", err, logField(r))
		respondErr(w, http.StatusInternalServerError, "Failed to fetch pending bottles")
		return
	}

	respond(w, http.StatusOK, res)
}

// ─── POST /functions/v1/send-confirmation ────────────────────────────────────

type sendConfirmationResponse struct {
	Success bool `json:"success"`
}

// handleSendConfirmation emails the sender that their bottle was sealed.
func (s *Server) handleSendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req notify.Request
	if !decode(w, r, &req) {
		return
	}

	err := s.seal(r.Context(), req)
	switch {
	case err == nil:
		respond(w, http.StatusOK, sendConfirmationResponse{Success: true})
	case errors.Is(err, notify.ErrMissingFields):
		respondErr(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, bottle.ErrValidation):
		respondErr(w, http.StatusBadRequest, "Invalid deliveryDate")
	case errors.Is(err, bottle.ErrConfiguration):
		respondErr(w, http.StatusInternalServerError, "Email service not configured")
	default:
		respondErr(w, http.StatusInternalServerError, "Failed to send email")
	}
}

// seal keeps Seal's order when no notifier is wired: request errors first,
// then the configuration error.
func (s *Server) seal(ctx context.Context, req notify.Request) error {
	if s.notifier == nil {
		if _, err := req.Validate(); err != nil {
			return err
		}
		return fmt.Errorf("%w: no notifier", bottle.ErrConfiguration)
	}
	return s.notifier.Seal(ctx, req)
}
