package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memoracard/internal/deckservice"
	"github.com/starford/memoracard/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	decks    *deckservice.Service
	sessions *session.Manager
	now      func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(decks *deckservice.Service, sessions *session.Manager) *Handler {
	return &Handler{decks: decks, sessions: sessions, now: time.Now}
}

// ListDecks handles GET /api/decks.
//
//	@Summary		List decks, newest first
//	@Tags			decks
//	@Produce		json
//	@Success		200	{object}	DeckListResponse
//	@Security		BearerAuth
//	@Router			/decks [get]
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.decks.ListDecks(r.Context())
	if err != nil {
		writeError(w, "list decks", err)
		return
	}
	writeJSON(w, http.StatusOK, DeckListResponse{Decks: decks})
}

// CreateDeck handles POST /api/decks.
//
//	@Summary		Create a deck
//	@Tags			decks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeckRequest	true	"Deck to create"
//	@Success		201		{object}	models.Deck
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks [post]
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req DeckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.decks.CreateDeck(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create deck", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetDeck handles GET /api/decks/{deckID}.
//
//	@Summary		Get a deck
//	@Tags			decks
//	@Produce		json
//	@Param			deckID	path		string	true	"Deck ID"
//	@Success		200		{object}	models.Deck
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID} [get]
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	d, err := h.decks.GetDeck(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, "get deck", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RenameDeck handles PUT /api/decks/{deckID}.
//
//	@Summary		Rename a deck
//	@Tags			decks
//	@Accept			json
//	@Produce		json
//	@Param			deckID	path		string		true	"Deck ID"
//	@Param			body	body		DeckRequest	true	"New name"
//	@Success		200		{object}	models.Deck
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID} [put]
func (h *Handler) RenameDeck(w http.ResponseWriter, r *http.Request) {
	var req DeckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.decks.RenameDeck(r.Context(), chi.URLParam(r, "deckID"), req.Name)
	if err != nil {
		writeError(w, "rename deck", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDeck handles DELETE /api/decks/{deckID}.
//
//	@Summary		Delete a deck and its cards
//	@Tags			decks
//	@Param			deckID	path	string	true	"Deck ID"
//	@Success		204		"Deck deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID} [delete]
func (h *Handler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.decks.DeleteDeck(r.Context(), chi.URLParam(r, "deckID")); err != nil {
		writeError(w, "delete deck", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCards handles GET /api/decks/{deckID}/cards.
//
//	@Summary		List a deck's cards by due date
//	@Tags			cards
//	@Produce		json
//	@Param			deckID	path		string	true	"Deck ID"
//	@Param			due		query		bool	false	"Only cards due now"
//	@Success		200		{object}	CardListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/cards [get]
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	list := h.decks.ListCards
	if due, _ := strconv.ParseBool(r.URL.Query().Get("due")); due {
		list = h.decks.DueCards
	}
	cards, err := list(r.Context(), deckID)
	if err != nil {
		writeError(w, "list cards", err)
		return
	}
	writeJSON(w, http.StatusOK, CardListResponse{Cards: cards})
}

// AddCard handles POST /api/decks/{deckID}/cards.
//
//	@Summary		Add a card to a deck
//	@Tags			cards
//	@Accept			json
//	@Produce		json
//	@Param			deckID	path		string		true	"Deck ID"
//	@Param			body	body		CardRequest	true	"Card to add"
//	@Success		201		{object}	models.Flashcard
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/cards [post]
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.decks.AddCard(r.Context(), chi.URLParam(r, "deckID"), req.Question, req.Answer)
	if err != nil {
		writeError(w, "add card", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCard handles PUT /api/decks/{deckID}/cards/{cardID}.
//
//	@Summary		Edit a card's question and answer
//	@Tags			cards
//	@Accept			json
//	@Produce		json
//	@Param			deckID	path		string		true	"Deck ID"
//	@Param			cardID	path		string		true	"Card ID"
//	@Param			body	body		CardRequest	true	"New content"
//	@Success		200		{object}	models.Flashcard
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/cards/{cardID} [put]
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.decks.UpdateCard(r.Context(), chi.URLParam(r, "deckID"), chi.URLParam(r, "cardID"), req.Question, req.Answer)
	if err != nil {
		writeError(w, "update card", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCard handles DELETE /api/decks/{deckID}/cards/{cardID}.
//
//	@Summary		Delete a card
//	@Tags			cards
//	@Param			deckID	path	string	true	"Deck ID"
//	@Param			cardID	path	string	true	"Card ID"
//	@Success		204		"Card deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/cards/{cardID} [delete]
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.decks.DeleteCard(r.Context(), chi.URLParam(r, "deckID"), chi.URLParam(r, "cardID")); err != nil {
		writeError(w, "delete card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchCards handles GET /api/search.
//
//	@Summary		Search card questions and answers
//	@Tags			cards
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	CardListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) SearchCards(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cards, err := h.decks.SearchCards(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, "search cards", err)
		return
	}
	writeJSON(w, http.StatusOK, CardListResponse{Cards: cards})
}
