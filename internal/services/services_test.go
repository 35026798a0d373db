package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/database"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/isdelr/recipehub-be/internal/policy"
	"github.com/stretchr/testify/require"
)

const testPassword = "Tasty-Pie-2024"

type fixture struct {
	db      *sql.DB
	policy  *policy.Policy
	jwt     *auth.JWTManager
	users   *UserService
	events  *EventService
	recipes *RecipeService
	ratings *RatingService
	feed    *recordingBroadcaster
	counts  *countingRecorder
}

func newFixture(t *testing.T, enforceRatingOwnership bool) *fixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{
		db:     db,
		policy: policy.New(enforceRatingOwnership),
		jwt:    auth.NewJWTManager("test-secret", time.Minute),
		feed:   &recordingBroadcaster{},
		counts: &countingRecorder{},
	}
	f.events = NewEventService(db, f.policy, f.feed)
	f.users = NewUserService(db, f.jwt, auth.PasswordPolicy{MinLength: 8}, time.Hour, f.events)
	f.recipes = NewRecipeService(db, f.policy, f.events, nil)
	f.ratings = NewRatingService(db, f.policy, f.events, f.counts)
	return f
}

func (f *fixture) register(t *testing.T, username string, role models.Role) *policy.Actor {
	t.Helper()
	user, _, err := f.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		UserType: role.String(),
	})
	require.NoError(t, err)
	return &policy.Actor{ID: user.ID, Username: user.Username, Role: user.Role}
}

func (f *fixture) recipe(t *testing.T, seller *policy.Actor, name string) models.Recipe {
	t.Helper()
	recipe, err := f.recipes.CreateRecipe(context.Background(), seller, recipeInput(name))
	require.NoError(t, err)
	return recipe
}

func recipeInput(name string) models.RecipeInput {
	return models.RecipeInput{
		Name:        strPtr(name),
		Description: strPtr("Mix, bake, enjoy."),
		Image:       strPtr("recipes/2024/1/1/" + name + ".jpg"),
	}
}

func ratingInput(recipeID string, score int) models.RatingInput {
	return models.RatingInput{RecipeID: strPtr(recipeID), Score: &score}
}

type recordingBroadcaster struct {
	mu         sync.Mutex
	messages   map[string][][]byte
	privileged map[string][][]byte
}

func (b *recordingBroadcaster) Publish(topic string, message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = make(map[string][][]byte)
	}
	b.messages[topic] = append(b.messages[topic], message)
}

func (b *recordingBroadcaster) PublishPrivileged(topic string, message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.privileged == nil {
		b.privileged = make(map[string][][]byte)
	}
	b.privileged[topic] = append(b.privileged[topic], message)
}

// count reports every message published on topic, privileged or not.
func (b *recordingBroadcaster) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages[topic]) + len(b.privileged[topic])
}

func (b *recordingBroadcaster) countPrivileged(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.privileged[topic])
}

type countingRecorder struct {
	mu        sync.Mutex
	created   int
	conflicts int
}

func (c *countingRecorder) RatingCreated() {
	c.mu.Lock()
	c.created++
	c.mu.Unlock()
}

func (c *countingRecorder) RatingConflict() {
	c.mu.Lock()
	c.conflicts++
	c.mu.Unlock()
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
