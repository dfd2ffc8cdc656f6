package server

import (
	"encoding/json"
	"net/http"
	"time"

	"gateway-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const initialBacklog = 50

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			s.clientsMutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMutex.Unlock()
			return

		case client := <-s.register:
			s.clientsMutex.Lock()
			s.clients[client] = struct{}{}
			s.clientsMutex.Unlock()

			// Send the recent backlog on connect
			client.send <- &models.MHubMessage{
				Type:      "INITIAL",
				Entries:   s.Services.Feed.Latest(initialBacklog, ""),
				Timestamp: time.Now().UnixMilli(),
			}

		case client := <-s.unregister:
			s.clientsMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMutex.Unlock()

		case entries := <-s.broadcast:
			now := time.Now().UnixMilli()

			s.clientsMutex.Lock()
			for client := range s.clients {
				filtered := client.filter(entries)
				if len(filtered) == 0 {
					continue
				}
				select {
				case client.send <- &models.MHubMessage{Type: "UPDATE", Entries: filtered, Timestamp: now}:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.clientsMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues new activity for every connected dashboard.
func (s *DashboardServer) Broadcast(entries []models.MActivityEntry) {
	if len(entries) == 0 {
		return
	}
	select {
	case s.broadcast <- entries:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command. An empty category list
// subscribes to everything.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	categories := make([]models.MActivityCategory, 0, len(cmd.Categories))
	for _, cat := range cmd.Categories {
		if cat.Valid() {
			categories = append(categories, cat)
		}
	}
	client.setCategories(categories)

	// Reply with the backlog in the new view
	response := &models.MHubMessage{
		Type:      "INITIAL",
		Entries:   client.filter(s.Services.Feed.Latest(initialBacklog, "")),
		Timestamp: time.Now().UnixMilli(),
	}

	s.clientsMutex.RLock()
	_, registered := s.clients[client]
	if registered {
		select {
		case client.send <- response:
		default:
		}
	}
	s.clientsMutex.RUnlock()
}
