package websocket

import (
	"context"

	"github.com/rs/zerolog/log"
)

type publication struct {
	topic   string
	client  *Client
	message []byte

	// privileged messages only reach clients with Privileged set.
	privileged bool
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	publish chan publication
	done    chan struct{}

	// A map of recipe IDs to a set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		publish:       make(chan publication, 64),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. It returns when ctx is
// cancelled, closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			if client.RecipeID != "" {
				h.addSubscription(client, client.RecipeID)
			}
			log.Info().Int("total_clients", len(h.clients)).Str("recipe_id", client.RecipeID).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case p := <-h.publish:
			h.deliver(p)
		}
	}
}

// Register adds client to the hub. It reports false when the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues message for every global client and, when topic names a
// recipe, for the clients watching that recipe. It never blocks once the
// hub has stopped.
func (h *Hub) Publish(topic string, message []byte) {
	select {
	case h.publish <- publication{topic: topic, message: message}:
	case <-h.done:
	}
}

// PublishPrivileged is Publish restricted to privileged clients.
func (h *Hub) PublishPrivileged(topic string, message []byte) {
	select {
	case h.publish <- publication{topic: topic, message: message, privileged: true}:
	case <-h.done:
	}
}

// direct queues message for a single registered client.
func (h *Hub) direct(client *Client, message []byte) {
	select {
	case h.publish <- publication{client: client, message: message}:
	case <-h.done:
	}
}

func (h *Hub) deliver(p publication) {
	if p.client != nil {
		if h.clients[p.client] {
			h.send(p.client, p.message)
		}
		return
	}
	for client := range h.clients {
		if client.RecipeID != "" || !p.reaches(client) {
			continue
		}
		h.send(client, p.message)
	}
	if p.topic == "" {
		return
	}
	for client := range h.subscriptions[p.topic] {
		if p.reaches(client) {
			h.send(client, p.message)
		}
	}
}

func (p publication) reaches(client *Client) bool {
	return !p.privileged || client.Privileged
}

// send drops clients whose buffer is full.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		log.Warn().Str("recipe_id", client.RecipeID).Msg("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, recipeID string) {
	if h.subscriptions[recipeID] == nil {
		h.subscriptions[recipeID] = make(map[*Client]bool)
	}
	h.subscriptions[recipeID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for recipeID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, recipeID)
			}
		}
	}
}
