package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/session"
)

// StartSession handles POST /api/decks/{deckID}/sessions.
//
//	@Summary		Start or resume a study session for a deck
//	@Tags			sessions
//	@Produce		json
//	@Param			deckID	path		string	true	"Deck ID"
//	@Success		201		{object}	SessionView
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/sessions [post]
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	cards, err := h.decks.StudyCards(r.Context(), deckID)
	if err != nil {
		writeError(w, "start session", err)
		return
	}
	c, err := h.sessions.StartSession(r.Context(), deckID, cards)
	if err != nil {
		writeError(w, "start session", err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(c, h.now()))
}

// GetSession handles GET /api/sessions/{sessionID}.
//
//	@Summary		Get the current state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session handle"
//	@Success		200			{object}	SessionView
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(c, h.now()))
}

// RateCard handles POST /api/sessions/{sessionID}/rate.
//
//	@Summary		Rate the current card
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			sessionID	path		string		true	"Session handle"
//	@Param			body		body		RateRequest	true	"Rating"
//	@Success		200			{object}	SessionView
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		429			{object}	errResponse
//	@Failure		503			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/rate [post]
func (h *Handler) RateCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "rate card", err)
		return
	}
	var req RateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondAfter(w, "rate card", c, c.Rate(r.Context(), req.Rating))
}

// SessionSummary handles GET /api/sessions/{sessionID}/summary.
//
//	@Summary		Get the summary of a finished session
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session handle"
//	@Success		200			{object}	models.SessionSummary
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/summary [get]
func (h *Handler) SessionSummary(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "session summary", err)
		return
	}
	sum, err := c.Summary()
	if err != nil {
		writeError(w, "session summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// FinishSession handles POST /api/sessions/{sessionID}/finish.
//
//	@Summary		End a session early and produce its summary
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session handle"
//	@Success		200			{object}	SessionView
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/finish [post]
func (h *Handler) FinishSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "finish session", err)
		return
	}
	h.respondAfter(w, "finish session", c, c.Finish(r.Context()))
}

// ExitSession handles POST /api/sessions/{sessionID}/exit.
//
//	@Summary		Abandon a session without a summary
//	@Tags			sessions
//	@Param			sessionID	path	string	true	"Session handle"
//	@Success		204			"Session closed"
//	@Failure		404			{object}	errResponse
//	@Failure		503			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/exit [post]
func (h *Handler) ExitSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Exit(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, "exit session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestartSession handles POST /api/sessions/{sessionID}/restart.
//
//	@Summary		Restart a session from its original cards
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session handle"
//	@Success		200			{object}	SessionView
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/restart [post]
func (h *Handler) RestartSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "restart session", err)
		return
	}
	h.respondAfter(w, "restart session", c, c.Restart(r.Context()))
}

// respondAfter writes the session view after a mutating call. A checkpoint
// failure still succeeds, with a warning in the body. A card that vanished
// mid-session is reported in dropped_card alongside the advanced session.
func (h *Handler) respondAfter(w http.ResponseWriter, op string, c *session.Coordinator, err error) {
	var warning, dropped string
	if err != nil {
		var dce *session.DroppedCardError
		if errors.As(err, &dce) {
			dropped = dce.CardID
		}
		checkpoint := errors.Is(err, apperr.ErrCheckpoint)
		if dropped == "" && !checkpoint {
			writeError(w, op, err)
			return
		}
		if checkpoint {
			warning = err.Error()
		}
	}
	v := newSessionView(c, h.now())
	v.Warning = warning
	v.DroppedCard = dropped
	writeJSON(w, http.StatusOK, v)
}
