package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/isdelr/recipehub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// RecipeHandler handles HTTP requests for the recipe catalog.
type RecipeHandler struct {
	service services.RecipeServiceProvider
	images  services.ImageServiceProvider
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(service services.RecipeServiceProvider, images services.ImageServiceProvider) *RecipeHandler {
	return &RecipeHandler{service: service, images: images}
}

// GetAll handles listing recipes, newest first.
func (h *RecipeHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.ListRecipes(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// Get handles retrieving a single recipe.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipe, err := h.service.GetRecipe(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Create handles publishing a new recipe.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload models.RecipeInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	recipe, err := h.service.CreateRecipe(r.Context(), auth.ActorFrom(r.Context()), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("recipe_id", recipe.ID).Str("seller_id", recipe.SellerID).Msg("Recipe created")
	writeJSON(w, http.StatusCreated, recipe)
}

// Update handles PUT (full) and PATCH (partial) updates.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload models.RecipeInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	partial := r.Method == http.MethodPatch
	recipe, err := h.service.UpdateRecipe(r.Context(), auth.ActorFrom(r.Context()), id, payload, partial)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Delete handles removing a recipe together with its ratings.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteRecipe(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("recipe_id", id).Msg("Recipe deleted")
	w.WriteHeader(http.StatusNoContent)
}

// RequestImageUpload hands a seller a presigned URL to upload an image to.
func (h *RecipeHandler) RequestImageUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := h.images.RequestUpload(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}
