// Package livefeed fans change notifications out to websocket subscribers.
package livefeed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Message is one notification on a topic (a collection name).
type Message struct {
	Topic string
	Data  []byte
}

// Client is a subscriber. An empty Topics set receives every topic.
type Client struct {
	Send   chan []byte
	Topics map[string]bool
}

func NewClient(buffer int, topics ...string) *Client {
	c := &Client{
		Send:   make(chan []byte, buffer),
		Topics: make(map[string]bool, len(topics)),
	}
	for _, t := range topics {
		if t != "" {
			c.Topics[t] = true
		}
	}
	return c
}

func (c *Client) wants(topic string) bool {
	return len(c.Topics) == 0 || c.Topics[topic]
}

type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled; then every client's Send is closed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.Send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
			logrus.WithField("clients", len(h.clients)).Debug("Live feed client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}
			h.setCount(len(h.clients))

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(msg.Topic) {
					continue
				}
				select {
				case c.Send <- msg.Data:
				default:
					// slow subscriber
					delete(h.clients, c)
					close(c.Send)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Register adds c. After the hub stopped, c.Send is closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a message for delivery; it drops the message when the hub is saturated.
func (h *Hub) Broadcast(topic string, data []byte) {
	select {
	case h.broadcast <- Message{Topic: topic, Data: data}:
	default:
		logrus.WithField("topic", topic).Warn("Live feed broadcast channel is full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
