package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Event names broadcast on the task feed.
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// TaskEvent is the JSON payload sent to every connected feed client.
type TaskEvent struct {
	Event  string `json:"event"`
	TaskID int    `json:"task_id"`
	UserID int    `json:"user_id"`
}

// Client wraps a single WebSocket connection. Mu serializes writes, fiber's
// websocket connections are not safe for concurrent WriteMessage.
type Client struct {
	Conn *websocket.Conn
	Mu   sync.Mutex
}

// Hub fans task events out to all connected clients.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 16),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Publish queues a task event for broadcast. It never blocks a request
// handler: if the hub is saturated the event is dropped.
func (h *Hub) Publish(event string, taskID, userID int) {
	payload, err := json.Marshal(TaskEvent{Event: event, TaskID: taskID, UserID: userID})
	if err != nil {
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
	}
}

// Run owns the client set; register, unregister and broadcast all go through
// this loop so no lock is needed around Clients.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Conn.Close()
			}
		case message := <-h.Broadcast:
			for client := range h.Clients {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, message)
				client.Mu.Unlock()
				if err != nil {
					delete(h.Clients, client)
					client.Conn.Close()
				}
			}
		}
	}
}
