package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nyashahama/bottled/internal/bottle"
	"github.com/nyashahama/bottled/internal/db"
	"github.com/nyashahama/bottled/internal/notify"
)

// ─── RESPONSE SHAPES ──────────────────────────────────────────────────────────

type bottleResponse struct {
	ID             string     `json:"id"`
	SenderEmail    string     `json:"sender_email"`
	RecipientEmail string     `json:"recipient_email"`
	Message        string     `json:"message"`
	DeliveryDate   string     `json:"delivery_date"` // YYYY-MM-DD
	Theme          string     `json:"theme"`
	BottleColor    string     `json:"bottle_color"`
	ImageURL       *string    `json:"image_url"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at"`
}

type attemptResponse struct {
	AttemptedAt       time.Time `json:"attempted_at"`
	Outcome           string    `json:"outcome"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty"`
	Error             *string   `json:"error,omitempty"`
}

func toBottleResponse(b db.Bottle) bottleResponse {
	resp := bottleResponse{
		ID:             b.ID.String(),
		SenderEmail:    b.SenderEmail,
		RecipientEmail: b.RecipientEmail,
		Message:        b.Message,
		DeliveryDate:   b.DeliveryDate.Format(bottle.DateLayout),
		Theme:          string(b.Theme),
		BottleColor:    b.BottleColor,
		ImageURL:       nullableString(b.ImageUrl),
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
	}
	if b.DeliveredAt.Valid {
		t := b.DeliveredAt.Time
		resp.DeliveredAt = &t
	}
	return resp
}

// ─── POST /api/bottles ────────────────────────────────────────────────────────

type createBottleRequest struct {
	SenderEmail    string `json:"sender_email"`
	RecipientEmail string `json:"recipient_email"`
	Message        string `json:"message"`
	DeliveryDate   string `json:"delivery_date"`
	Theme          string `json:"theme"`
	BottleColor    string `json:"bottle_color"`
	ImageURL       string `json:"image_url"`
}

// handleCreateBottle seals a new bottle. The confirmation email is sent after
// the insert; its failure is logged and never fails the request.
func (s *Server) handleCreateBottle(w http.ResponseWriter, r *http.Request) {
	var req createBottleRequest
	if !decode(w, r, &req) {
		return
	}

	draft := bottle.Draft{
		SenderEmail:    req.SenderEmail,
		RecipientEmail: req.RecipientEmail,
		Message:        req.Message,
		DeliveryDate:   req.DeliveryDate,
		Theme:          req.Theme,
		BottleColor:    req.BottleColor,
		ImageURL:       req.ImageURL,
	}
	draft.Normalize()
	date, err := draft.Validate(s.now().UTC())
	if err != nil {
		respondErr(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	b, err := s.q.CreateBottle(r.Context(), db.CreateBottleParams{
		SenderEmail:    draft.SenderEmail,
		RecipientEmail: draft.RecipientEmail,
		Message:        draft.Message,
		DeliveryDate:   date,
		Theme:          db.BottleTheme(draft.Theme),
		BottleColor:    draft.BottleColor,
		ImageUrl:       nullString(draft.ImageURL),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create bottle: %w", err))
		return
	}
	s.metrics.BottleCreated()

	s.logger.Info("bottle sealed",
		"bottle_id", b.ID,
		"delivery_date", draft.DeliveryDate,
		logField(r),
	)

	if s.notifier != nil {
		err := s.notifier.Seal(r.Context(), notify.Request{
			SenderEmail:    b.SenderEmail,
			RecipientEmail: b.RecipientEmail,
			DeliveryDate:   draft.DeliveryDate,
			BottleColor:    b.BottleColor,
			Theme:          string(b.Theme),
		})
		if err != nil {
			s.logger.Warn("create bottle: confirmation email failed",
				"bottle_id", b.ID,
				"error", err,
				logField(r),
			)
		}
	}

	respond(w, http.StatusCreated, toBottleResponse(b))
}

// ─── GET /api/bottles ─────────────────────────────────────────────────────────

type listBottlesResponse struct {
	Bottles []bottleResponse `json:"bottles"`
}

// handleListBottles returns the caller's sealed bottles, newest first.
func (s *Server) handleListBottles(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	rows, err := s.q.ListBottlesBySender(r.Context(), id.Email)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list bottles: %w", err))
		return
	}

	resp := listBottlesResponse{Bottles: make([]bottleResponse, 0, len(rows))}
	for _, b := range rows {
		resp.Bottles = append(resp.Bottles, toBottleResponse(b))
	}
	respond(w, http.StatusOK, resp)
}

// ─── GET /api/bottles/{bottleID} ─────────────────────────────────────────────

type getBottleResponse struct {
	bottleResponse
	Attempts []attemptResponse `json:"attempts"`
}

// handleGetBottle returns one of the caller's bottles with its delivery
// attempts. A bottle owned by someone else is reported as not found.
func (s *Server) handleGetBottle(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		respondErr(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	bottleID, err := uuid.Parse(chi.URLParam(r, "bottleID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid bottle id")
		return
	}

	b, err := s.q.GetBottleByID(r.Context(), bottleID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && b.SenderEmail != id.Email) {
		respondErr(w, http.StatusNotFound, bottle.ErrNotFound.Error())
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get bottle: %w", err))
		return
	}

	attempts, err := s.q.ListDeliveryAttempts(r.Context(), b.ID)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list delivery attempts: %w", err))
		return
	}

	resp := getBottleResponse{
		bottleResponse: toBottleResponse(b),
		Attempts:       make([]attemptResponse, 0, len(attempts)),
	}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, attemptResponse{
			AttemptedAt:       a.AttemptedAt,
			Outcome:           string(a.Outcome),
			ProviderMessageID: nullableString(a.ProviderMessageID),
			Error:             nullableString(a.Error),
		})
	}
	respond(w, http.StatusOK, resp)
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

// nullString converts an empty string to a NULL sql.NullString.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
