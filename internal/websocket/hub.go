package websocket

import (
	"context"
	"strings"

	"github.com/isdelr/realty-be/internal/models"
	"github.com/rs/zerolog/log"
)

// GlobalTopic receives every listing change.
const GlobalTopic = "global"

// CityTopic returns the topic of listing changes in one city.
func CityTopic(city string) string {
	return "city:" + strings.ToLower(strings.TrimSpace(city))
}

type topicMessage struct {
	topic   string
	message []byte
}

type directMessage struct {
	client  *Client
	message []byte
}

type subscription struct {
	client *Client
	topic  string
}

// Hub maintains the set of active clients and fans listing changes out to
// the clients subscribed to each topic. All state is owned by Run.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	subscribe chan subscription
	publish   chan topicMessage
	direct    chan directMessage
	done      chan struct{}

	// A map of topics to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		subscribe:     make(chan subscription),
		publish:       make(chan topicMessage, 64),
		direct:        make(chan directMessage),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.topic)
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.topic).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; ok {
				h.removeSubscription(sub.client)
				sub.client.topic = sub.topic
				h.addSubscription(sub.client, sub.topic)
			}
		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				select {
				case d.client.Send <- d.message:
				default:
				}
			}
		case msg := <-h.publish:
			h.broadcastTo(msg.topic, msg.message)
		}
	}
}

// Join registers a client. It reports false when the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters a client. It is safe to call after the hub has stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Subscribe moves a registered client to another topic.
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- subscription{client: client, topic: topic}:
	case <-h.done:
	}
}

// SendTo queues a message for one client. Messages for clients that have
// left, or whose buffer is full, are dropped.
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// Publish queues a message for the subscribers of topic. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Publish(topic string, message []byte) {
	if message == nil {
		return
	}
	select {
	case h.publish <- topicMessage{topic: topic, message: message}:
	default:
		log.Warn().Str("topic", topic).Msg("Listing feed queue full, dropping message")
	}
}

// PublishListing announces a listing change to the global topic and to the
// topic of the listing's city.
func (h *Hub) PublishListing(action string, p models.Property) {
	message := Encode(action, p)
	h.Publish(GlobalTopic, message)
	if p.City != "" {
		h.Publish(CityTopic(p.City), message)
	}
}

func (h *Hub) broadcastTo(topic string, message []byte) {
	for client := range h.subscriptions[topic] {
		select {
		case client.Send <- message:
		default:
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	h.removeSubscription(client)
	close(client.Send)
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for topic, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
}
