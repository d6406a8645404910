package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"

	"go.uber.org/zap"
)

const broadcastBuffer = 256

type outbound struct {
	channel string
	data    []byte
}

type subscription struct {
	client  *Client
	channel string
	join    bool
}

// Hub maintains the set of active clients and their room memberships.
// Every client is on the general channel; device rooms are joined explicitly.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

var _ Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
		log:        logger.Component("broadcast"),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("WebSocket client registered", zap.String("remote", client.remote))

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(client)
				h.log.Debug("WebSocket client unregistered", zap.String("remote", client.remote))
			}
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if h.clients[sub.client] {
				if sub.join {
					room, ok := h.rooms[sub.channel]
					if !ok {
						room = make(map[*Client]bool)
						h.rooms[sub.channel] = room
					}
					room[sub.client] = true
				} else {
					h.leave(sub.client, sub.channel)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			targets := h.clients
			if msg.channel != GeneralChannel {
				targets = h.rooms[msg.channel]
			}
			for client := range targets {
				select {
				case client.send <- msg.data:
				default:
					h.log.Warn("WebSocket client send buffer full, removing", zap.String("remote", client.remote))
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with the write lock held.
func (h *Hub) drop(client *Client) {
	for channel := range h.rooms {
		h.leave(client, channel)
	}
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) leave(client *Client, channel string) {
	room, ok := h.rooms[channel]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, channel)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients joined to channel.
func (h *Hub) RoomSize(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channel])
}

func (h *Hub) PublishReading(reading *telemetry.Reading) {
	h.publish(EventTelemetry, reading.DeviceID, reading)
}

func (h *Hub) PublishDeviceRegistered(device *telemetry.Device) {
	h.publish(EventDeviceRegistered, device.ID, device)
}

func (h *Hub) PublishAlert(alert *telemetry.Alert) {
	h.publish(EventAlert, alert.DeviceID, alert)
}

func (h *Hub) publish(event Event, deviceID string, payload any) {
	for _, env := range envelopes(event, deviceID, payload) {
		data, err := json.Marshal(env)
		if err != nil {
			h.log.Error("Error marshalling event for broadcast", zap.String("event", string(event)), zap.Error(err))
			return
		}
		select {
		case h.broadcast <- outbound{channel: env.Channel, data: data}:
		default:
			h.log.Warn("Broadcast queue full, dropping event",
				zap.String("event", string(event)), zap.String("channel", env.Channel))
		}
	}
}
