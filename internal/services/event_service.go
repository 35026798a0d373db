package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/isdelr/recipehub-be/internal/policy"
	"github.com/rs/zerolog/log"
)

// Broadcaster fans event messages out to live subscribers. Privileged
// messages only reach subscribers allowed to read ratings.
type Broadcaster interface {
	Publish(topic string, message []byte)
	PublishPrivileged(topic string, message []byte)
}

// ratingEventPrefix marks events that reveal who rated what; they are
// visible only to actors that may list ratings.
const ratingEventPrefix = "rating."

func isRatingEvent(eventType string) bool {
	return strings.HasPrefix(eventType, ratingEventPrefix)
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, recipeID, actorID *string) error
	GetRecentEvents(ctx context.Context, actor *policy.Actor, limit int) ([]models.Event, error)
}

// EventService records marketplace activity and pushes it to live feeds.
type EventService struct {
	db          *sql.DB
	policy      *policy.Policy
	broadcaster Broadcaster
}

// NewEventService creates a new EventService. broadcaster may be nil.
func NewEventService(db *sql.DB, p *policy.Policy, broadcaster Broadcaster) *EventService {
	return &EventService{db: db, policy: p, broadcaster: broadcaster}
}

// CreateEvent stores a new event and publishes it to subscribers of the
// event's recipe.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, recipeID, actorID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		RecipeID:  recipeID,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, recipe_id, actor_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.RecipeID, event.ActorID, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	if s.broadcaster != nil {
		payload, err := json.Marshal(map[string]interface{}{"action": "event", "payload": event})
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		topic := ""
		if recipeID != nil {
			topic = *recipeID
		}
		if isRatingEvent(eventType) {
			s.broadcaster.PublishPrivileged(topic, payload)
		} else {
			s.broadcaster.Publish(topic, payload)
		}
	}
	return nil
}

// GetRecentEvents retrieves the most recent events from the database. Rating
// events are left out for actors that may not list ratings.
func (s *EventService) GetRecentEvents(ctx context.Context, actor *policy.Actor, limit int) ([]models.Event, error) {
	if err := s.policy.Authorize(actor, policy.ReadActivity); err != nil {
		return nil, err
	}
	query := "SELECT id, type, level, message, recipe_id, actor_id, created_at FROM events"
	args := []interface{}{}
	if s.policy.Authorize(actor, policy.ListRatings) != nil {
		query += " WHERE substr(type, 1, ?) <> ?"
		args = append(args, len(ratingEventPrefix), ratingEventPrefix)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.RecipeID, &event.ActorID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// recordEvent stores an event and logs, rather than fails, when that is not
// possible: the primary write has already committed.
func recordEvent(ctx context.Context, events EventServiceProvider, eventType, level, message string, recipeID, actorID *string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, eventType, level, message, recipeID, actorID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
