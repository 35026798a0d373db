package models

import "time"

// Event represents a loggable marketplace action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "recipe.create", "rating.delete"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Message   string    `json:"message"`
	RecipeID  *string   `json:"recipe_id,omitempty"`
	ActorID   *string   `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
