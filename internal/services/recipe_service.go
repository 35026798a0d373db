package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/isdelr/recipehub-be/internal/policy"
	"github.com/rs/zerolog/log"
)

// RecipeServiceProvider defines the interface for recipe services.
type RecipeServiceProvider interface {
	ListRecipes(ctx context.Context, actor *policy.Actor) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, actor *policy.Actor, id string) (models.Recipe, error)
	CreateRecipe(ctx context.Context, actor *policy.Actor, in models.RecipeInput) (models.Recipe, error)
	UpdateRecipe(ctx context.Context, actor *policy.Actor, id string, in models.RecipeInput, partial bool) (models.Recipe, error)
	DeleteRecipe(ctx context.Context, actor *policy.Actor, id string) error
}

// RecipeService provides business logic for the recipe catalog.
type RecipeService struct {
	db     *sql.DB
	policy *policy.Policy
	events EventServiceProvider
	images ImageURLResolver
}

// NewRecipeService creates a new RecipeService. images may be nil when
// object storage is not configured.
func NewRecipeService(db *sql.DB, p *policy.Policy, events EventServiceProvider, images ImageURLResolver) *RecipeService {
	return &RecipeService{db: db, policy: p, events: events, images: images}
}

// average_rating is recomputed from the ratings table on every read.
const recipeSelect = `
	SELECT r.id, r.seller_id, u.username, r.name, r.description, r.image, r.created_at, r.updated_at,
	       (SELECT COALESCE(SUM(score), 0) FROM ratings WHERE recipe_id = r.id),
	       (SELECT COUNT(*) FROM ratings WHERE recipe_id = r.id)
	FROM recipes r
	JOIN users u ON u.id = r.seller_id`

// scanRecipe is a helper to scan a recipe from a row or rows object.
func scanRecipe(scanner interface{ Scan(...interface{}) error }) (models.Recipe, error) {
	var recipe models.Recipe
	var total, count int64
	err := scanner.Scan(
		&recipe.ID, &recipe.SellerID, &recipe.Seller, &recipe.Name, &recipe.Description,
		&recipe.Image, &recipe.CreatedAt, &recipe.UpdatedAt, &total, &count,
	)
	if err != nil {
		return recipe, err
	}
	recipe.AverageRating = models.AverageFromTotals(total, count)
	return recipe, nil
}

// ListRecipes returns every recipe, newest first.
func (s *RecipeService) ListRecipes(ctx context.Context, actor *policy.Actor) ([]models.Recipe, error) {
	if err := s.policy.Authorize(actor, policy.ListRecipes); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, recipeSelect+" ORDER BY r.created_at DESC, r.rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes := []models.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range recipes {
		s.resolveImage(ctx, &recipes[i])
	}
	return recipes, nil
}

// GetRecipe retrieves a single recipe by its ID.
func (s *RecipeService) GetRecipe(ctx context.Context, actor *policy.Actor, id string) (models.Recipe, error) {
	if err := s.policy.Authorize(actor, policy.ReadRecipe); err != nil {
		return models.Recipe{}, err
	}
	recipe, err := s.getRecipe(ctx, id)
	if err != nil {
		return models.Recipe{}, err
	}
	s.resolveImage(ctx, &recipe)
	return recipe, nil
}

// CreateRecipe stores a new recipe owned by the acting seller.
func (s *RecipeService) CreateRecipe(ctx context.Context, actor *policy.Actor, in models.RecipeInput) (models.Recipe, error) {
	if err := s.policy.Authorize(actor, policy.CreateRecipe); err != nil {
		return models.Recipe{}, err
	}
	if err := validateRecipeInput(in, false); err != nil {
		return models.Recipe{}, err
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recipes (id, seller_id, name, description, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, actor.ID, *in.Name, *in.Description, *in.Image, now, now)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("failed to insert recipe: %w", err)
	}

	recipe, err := s.getRecipe(ctx, id)
	if err != nil {
		return models.Recipe{}, err
	}
	recordEvent(ctx, s.events, "recipe.create", "info",
		fmt.Sprintf("Recipe '%s' published by %s.", recipe.Name, actor.Username), &recipe.ID, &actor.ID)

	s.resolveImage(ctx, &recipe)
	return recipe, nil
}

// UpdateRecipe changes the mutable fields of a recipe owned by the actor.
// With partial set, absent fields keep their current values.
func (s *RecipeService) UpdateRecipe(ctx context.Context, actor *policy.Actor, id string, in models.RecipeInput, partial bool) (models.Recipe, error) {
	if err := s.policy.Authorize(actor, policy.UpdateRecipe); err != nil {
		return models.Recipe{}, err
	}
	existing, err := s.getRecipe(ctx, id)
	if err != nil {
		return models.Recipe{}, err
	}
	if err := s.policy.AuthorizeResource(actor, policy.UpdateRecipe, existing); err != nil {
		return models.Recipe{}, err
	}
	if err := validateRecipeInput(in, partial); err != nil {
		return models.Recipe{}, err
	}

	name, description, image := existing.Name, existing.Description, existing.Image
	if in.Name != nil {
		name = *in.Name
	}
	if in.Description != nil {
		description = *in.Description
	}
	if in.Image != nil {
		image = *in.Image
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE recipes SET name = ?, description = ?, image = ?, updated_at = ? WHERE id = ?",
		name, description, image, time.Now().UTC(), id)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("failed to update recipe: %w", err)
	}

	recipe, err := s.getRecipe(ctx, id)
	if err != nil {
		return models.Recipe{}, err
	}
	recordEvent(ctx, s.events, "recipe.update", "info",
		fmt.Sprintf("Recipe '%s' updated.", recipe.Name), &recipe.ID, &actor.ID)

	s.resolveImage(ctx, &recipe)
	return recipe, nil
}

// DeleteRecipe removes a recipe owned by the actor. Its ratings go with it
// through the ON DELETE CASCADE foreign key.
func (s *RecipeService) DeleteRecipe(ctx context.Context, actor *policy.Actor, id string) error {
	if err := s.policy.Authorize(actor, policy.DeleteRecipe); err != nil {
		return err
	}
	existing, err := s.getRecipe(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeResource(actor, policy.DeleteRecipe, existing); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	recordEvent(ctx, s.events, "recipe.delete", "warn",
		fmt.Sprintf("Recipe '%s' was deleted.", existing.Name), &existing.ID, &actor.ID)
	return nil
}

func (s *RecipeService) getRecipe(ctx context.Context, id string) (models.Recipe, error) {
	recipe, err := scanRecipe(s.db.QueryRowContext(ctx, recipeSelect+" WHERE r.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Recipe{}, apperrors.NotFound("recipe")
		}
		return models.Recipe{}, err
	}
	return recipe, nil
}

func (s *RecipeService) resolveImage(ctx context.Context, recipe *models.Recipe) {
	if s.images == nil || recipe.Image == "" {
		return
	}
	url, err := s.images.ImageURL(ctx, recipe.Image)
	if err != nil {
		log.Warn().Err(err).Str("recipe_id", recipe.ID).Msg("Failed to presign recipe image")
		return
	}
	recipe.ImageURL = url
}

// validateRecipeInput enforces field rules. Full writes need every field.
func validateRecipeInput(in models.RecipeInput, partial bool) error {
	verr := validateStruct(in)
	check := func(field string, v *string) {
		if v == nil {
			if !partial {
				verr.Add(field, "This field is required.")
			}
			return
		}
		if strings.TrimSpace(*v) == "" {
			verr.Add(field, "This field may not be blank.")
		}
	}
	check("name", in.Name)
	check("description", in.Description)
	check("image", in.Image)
	return verr.OrNil()
}
