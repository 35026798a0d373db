package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/isdelr/recipehub-be/internal/services"
)

// RatingHandler handles HTTP requests for customer ratings.
type RatingHandler struct {
	service services.RatingServiceProvider
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(service services.RatingServiceProvider) *RatingHandler {
	return &RatingHandler{service: service}
}

// RatingPayload is the wire form of a rating write. Comment is kept raw so
// an explicit null can be told apart from an absent field.
type RatingPayload struct {
	Recipe  *string         `json:"recipe"`
	Score   *int            `json:"score"`
	Comment json.RawMessage `json:"comment"`
}

func (p RatingPayload) input() (models.RatingInput, error) {
	in := models.RatingInput{RecipeID: p.Recipe, Score: p.Score}
	if p.Comment == nil {
		return in, nil
	}
	in.CommentSet = true
	if bytes.Equal(bytes.TrimSpace(p.Comment), []byte("null")) {
		return in, nil
	}
	var comment string
	if err := json.Unmarshal(p.Comment, &comment); err != nil {
		return in, apperrors.FieldError("comment", "Not a valid string.")
	}
	in.Comment = &comment
	return in, nil
}

// GetAll handles listing ratings, optionally filtered by ?recipe=.
func (h *RatingHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	recipeID := r.URL.Query().Get("recipe")
	ratings, err := h.service.ListRatings(r.Context(), auth.ActorFrom(r.Context()), recipeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}

// Get handles retrieving a single rating.
func (h *RatingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rating, err := h.service.GetRating(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// Create handles rating a recipe.
func (h *RatingHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rating, err := h.service.CreateRating(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

// Update handles PUT (full) and PATCH (partial) updates.
func (h *RatingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := h.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	partial := r.Method == http.MethodPatch
	rating, err := h.service.UpdateRating(r.Context(), auth.ActorFrom(r.Context()), id, in, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// Delete handles removing a rating.
func (h *RatingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteRating(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RatingHandler) decode(w http.ResponseWriter, r *http.Request) (models.RatingInput, error) {
	var payload RatingPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		return models.RatingInput{}, err
	}
	return payload.input()
}
