package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/metrics"
	"github.com/isdelr/recipehub-be/internal/policy"
	"github.com/isdelr/recipehub-be/internal/services"
	ws "github.com/isdelr/recipehub-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades authenticated requests to live activity feeds.
type WebSocketHandler struct {
	hub      *ws.Hub
	policy   *policy.Policy
	recipes  services.RecipeServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browser connections
// are accepted from allowedOrigins only; "*" allows any origin.
func NewWebSocketHandler(hub *ws.Hub, p *policy.Policy, recipes services.RecipeServiceProvider, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WebSocketHandler{
		hub:     hub,
		policy:  p,
		recipes: recipes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Serve handles the WebSocket connection request for /ws and
// /ws/recipes/{id}.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	if err := h.policy.Authorize(actor, policy.ReadActivity); err != nil {
		writeError(w, r, err)
		return
	}

	recipeID := chi.URLParam(r, "id")
	if recipeID != "" {
		// Scoped feeds are only offered for recipes that exist.
		if _, err := h.recipes.GetRecipe(r.Context(), actor, recipeID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, recipeID, actor.ID)
	// Rating activity follows the same rule as reading ratings.
	client.Privileged = h.policy.Authorize(actor, policy.ListRatings) == nil
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	metrics.WebsocketConnected()
	client.Reply(ws.NewWelcomeMessage(recipeID))

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		client.WritePump()
	}()
	go func() {
		defer wg.Done()
		client.ReadPump(h.handleIncomingWSMessage)
		// Closing Send stops WritePump once the reader is gone.
		h.hub.Unregister(client)
	}()

	// Cleanup on disconnect.
	go func() {
		wg.Wait()
		metrics.WebsocketDisconnected()
		log.Debug().Str("user_id", client.UserID).Str("recipe_id", client.RecipeID).Msg("Websocket client finished")
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("user_id", client.UserID).Msg("Error decoding websocket message")
		client.Reply(ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "ping":
		client.Reply(ws.NewPongMessage(time.Now()))
	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.Reply(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}
