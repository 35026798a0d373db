package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/database"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/isdelr/recipehub-be/internal/policy"
)

// RatingRecorder receives rating outcomes for metrics.
type RatingRecorder interface {
	RatingCreated()
	RatingConflict()
}

// RatingServiceProvider defines the interface for rating services.
type RatingServiceProvider interface {
	ListRatings(ctx context.Context, actor *policy.Actor, recipeID string) ([]models.Rating, error)
	GetRating(ctx context.Context, actor *policy.Actor, id string) (models.Rating, error)
	CreateRating(ctx context.Context, actor *policy.Actor, in models.RatingInput) (models.Rating, error)
	UpdateRating(ctx context.Context, actor *policy.Actor, id string, in models.RatingInput, partial bool) (models.Rating, error)
	DeleteRating(ctx context.Context, actor *policy.Actor, id string) error
}

// RatingService provides business logic for customer ratings.
type RatingService struct {
	db       *sql.DB
	policy   *policy.Policy
	events   EventServiceProvider
	recorder RatingRecorder
}

// NewRatingService creates a new RatingService. recorder may be nil.
func NewRatingService(db *sql.DB, p *policy.Policy, events EventServiceProvider, recorder RatingRecorder) *RatingService {
	return &RatingService{db: db, policy: p, events: events, recorder: recorder}
}

const ratingSelect = `
	SELECT ra.id, ra.recipe_id, ra.user_id, u.username, ra.score, ra.comment, ra.created_at
	FROM ratings ra
	JOIN users u ON u.id = ra.user_id`

func scanRating(scanner interface{ Scan(...interface{}) error }) (models.Rating, error) {
	var rating models.Rating
	var comment sql.NullString
	err := scanner.Scan(&rating.ID, &rating.RecipeID, &rating.UserID, &rating.User, &rating.Score, &comment, &rating.CreatedAt)
	if err != nil {
		return rating, err
	}
	if comment.Valid {
		rating.Comment = &comment.String
	}
	return rating, nil
}

// ListRatings returns ratings newest first. A non-empty recipeID restricts
// the result to that recipe; an unknown recipe yields an empty list.
func (s *RatingService) ListRatings(ctx context.Context, actor *policy.Actor, recipeID string) ([]models.Rating, error) {
	if err := s.policy.Authorize(actor, policy.ListRatings); err != nil {
		return nil, err
	}

	query := ratingSelect
	var args []interface{}
	if recipeID != "" {
		if _, err := uuid.Parse(recipeID); err != nil {
			return nil, apperrors.FieldError("recipe", "Select a valid choice. That choice is not one of the available choices.")
		}
		query += " WHERE ra.recipe_id = ?"
		args = append(args, recipeID)
	}
	query += " ORDER BY ra.created_at DESC, ra.rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := []models.Rating{}
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// GetRating retrieves a single rating by its ID.
func (s *RatingService) GetRating(ctx context.Context, actor *policy.Actor, id string) (models.Rating, error) {
	if err := s.policy.Authorize(actor, policy.ReadRating); err != nil {
		return models.Rating{}, err
	}
	return s.getRating(ctx, s.db, id)
}

// CreateRating stores the actor's rating for a recipe. A second rating for
// the same recipe is rejected by the (recipe_id, user_id) unique index, so
// concurrent duplicates resolve to exactly one success.
func (s *RatingService) CreateRating(ctx context.Context, actor *policy.Actor, in models.RatingInput) (models.Rating, error) {
	if err := s.policy.Authorize(actor, policy.CreateRating); err != nil {
		return models.Rating{}, err
	}
	if err := validateRatingInput(in, false); err != nil {
		return models.Rating{}, err
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ratings (id, recipe_id, user_id, score, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, *in.RecipeID, actor.ID, *in.Score, in.Comment, time.Now().UTC())
	if err != nil {
		return models.Rating{}, s.writeError(err)
	}
	if s.recorder != nil {
		s.recorder.RatingCreated()
	}

	rating, err := s.getRating(ctx, s.db, id)
	if err != nil {
		return models.Rating{}, err
	}
	recordEvent(ctx, s.events, "rating.create", "info",
		fmt.Sprintf("%s rated a recipe %d/%d.", actor.Username, rating.Score, models.MaxScore), &rating.RecipeID, &actor.ID)
	return rating, nil
}

// UpdateRating changes a rating's recipe, score or comment. With partial set,
// absent fields keep their current values.
func (s *RatingService) UpdateRating(ctx context.Context, actor *policy.Actor, id string, in models.RatingInput, partial bool) (models.Rating, error) {
	if err := s.policy.Authorize(actor, policy.UpdateRating); err != nil {
		return models.Rating{}, err
	}

	var rating models.Rating
	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		existing, err := s.getRating(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.policy.AuthorizeResource(actor, policy.UpdateRating, existing); err != nil {
			return err
		}
		if err := validateRatingInput(in, partial); err != nil {
			return err
		}

		recipeID, score, comment := existing.RecipeID, existing.Score, existing.Comment
		if in.RecipeID != nil {
			recipeID = *in.RecipeID
		}
		if in.Score != nil {
			score = *in.Score
		}
		if in.CommentSet || !partial {
			comment = in.Comment
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE ratings SET recipe_id = ?, score = ?, comment = ? WHERE id = ?",
			recipeID, score, comment, id)
		if err != nil {
			return s.writeError(err)
		}
		rating, err = s.getRating(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Rating{}, err
	}

	recordEvent(ctx, s.events, "rating.update", "info",
		fmt.Sprintf("%s changed a rating to %d/%d.", actor.Username, rating.Score, models.MaxScore), &rating.RecipeID, &actor.ID)
	return rating, nil
}

// DeleteRating removes a rating.
func (s *RatingService) DeleteRating(ctx context.Context, actor *policy.Actor, id string) error {
	if err := s.policy.Authorize(actor, policy.DeleteRating); err != nil {
		return err
	}
	existing, err := s.getRating(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeResource(actor, policy.DeleteRating, existing); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM ratings WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	recordEvent(ctx, s.events, "rating.delete", "info",
		fmt.Sprintf("%s removed a rating.", actor.Username), &existing.RecipeID, &actor.ID)
	return nil
}

func (s *RatingService) getRating(ctx context.Context, db database.DBTX, id string) (models.Rating, error) {
	rating, err := scanRating(db.QueryRowContext(ctx, ratingSelect+" WHERE ra.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Rating{}, apperrors.NotFound("rating")
		}
		return models.Rating{}, err
	}
	return rating, nil
}

// writeError maps constraint failures from a rating write onto the error
// taxonomy.
func (s *RatingService) writeError(err error) error {
	switch {
	case database.IsUniqueViolation(err):
		if s.recorder != nil {
			s.recorder.RatingConflict()
		}
		return apperrors.Conflict("you have already rated this recipe")
	case database.IsForeignKeyViolation(err):
		return apperrors.NotFound("recipe")
	}
	return fmt.Errorf("failed to write rating: %w", err)
}

func validateRatingInput(in models.RatingInput, partial bool) error {
	verr := apperrors.NewValidationError()
	if in.RecipeID == nil {
		if !partial {
			verr.Add("recipe", "This field is required.")
		}
	} else if _, err := uuid.Parse(*in.RecipeID); err != nil {
		verr.Add("recipe", "Must be a valid UUID.")
	}
	if in.Score == nil {
		if !partial {
			verr.Add("score", "This field is required.")
		}
	} else if *in.Score < models.MinScore || *in.Score > models.MaxScore {
		verr.Add("score", fmt.Sprintf("Ensure this value is between %d and %d.", models.MinScore, models.MaxScore))
	}
	return verr.OrNil()
}
