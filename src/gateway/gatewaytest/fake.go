// Package gatewaytest provides an in-process gateway speaking the challenge
// handshake over a real websocket, for tests.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"gateway-dashboard/src/models"

	"github.com/gorilla/websocket"
)

// Handler answers one application request.
type Handler func(method string, params json.RawMessage) (interface{}, *models.MRpcError)

// Received is one application request as seen by the fake.
type Received struct {
	Method string
	Params json.RawMessage
}

// Server is a fake gateway. Configure the exported fields before the first call.
type Server struct {
	Handler Handler

	// RejectConnect, when set, fails the connect handshake with this message.
	RejectConnect string
	// SkipChallenge suppresses the connect.challenge event.
	SkipChallenge bool
	// Delay holds each application response back.
	Delay time.Duration
	// DropOnRequest closes the socket instead of answering.
	DropOnRequest bool
	// NoiseEvents pushes an unrelated event before every response.
	NoiseEvents bool

	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	connections int
	requests    []Received
	connects    []models.MConnectParams
}

// -----------------------------------------------------------------------------

func NewServer(handler Handler) *Server {
	s := &Server{
		Handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// URL returns the ws:// address of the fake.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *Server) Close() {
	s.srv.CloseClientConnections()
	s.srv.Close()
}

// -----------------------------------------------------------------------------

func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// Requests returns every application (non-connect) request received.
func (s *Server) Requests() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Received(nil), s.requests...)
}

// Connects returns the connect payloads received.
func (s *Server) Connects() []models.MConnectParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MConnectParams(nil), s.connects...)
}

// -----------------------------------------------------------------------------

type inbound struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.connections++
	s.mu.Unlock()

	if !s.SkipChallenge {
		conn.WriteJSON(map[string]interface{}{
			"type":    models.FrameTypeEvent,
			"event":   models.EventConnectChallenge,
			"payload": map[string]interface{}{"nonce": "n-1", "ts": time.Now().UnixMilli()},
		})
	}

	for {
		var req inbound
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if req.Method == models.MethodConnect {
			var params models.MConnectParams
			json.Unmarshal(req.Params, &params)
			s.mu.Lock()
			s.connects = append(s.connects, params)
			s.mu.Unlock()

			if s.RejectConnect != "" {
				conn.WriteJSON(models.MGatewayFrame{
					Type:  models.FrameTypeResponse,
					ID:    req.ID,
					Error: &models.MRpcError{Code: "UNAUTHORIZED", Message: s.RejectConnect},
				})
				continue
			}
			conn.WriteJSON(map[string]interface{}{
				"type":   models.FrameTypeResponse,
				"id":     req.ID,
				"result": map[string]interface{}{"type": "hello-ok", "protocol": params.MaxProtocol},
			})
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, Received{Method: req.Method, Params: req.Params})
		s.mu.Unlock()

		if s.DropOnRequest {
			return
		}
		if s.Delay > 0 {
			time.Sleep(s.Delay)
		}
		if s.NoiseEvents {
			conn.WriteJSON(map[string]interface{}{"type": models.FrameTypeEvent, "event": "tick"})
		}

		var result interface{}
		var rpcErr *models.MRpcError
		if s.Handler != nil {
			result, rpcErr = s.Handler(req.Method, req.Params)
		}
		if rpcErr != nil {
			conn.WriteJSON(models.MGatewayFrame{Type: models.FrameTypeResponse, ID: req.ID, Error: rpcErr})
			continue
		}
		conn.WriteJSON(map[string]interface{}{
			"type":   models.FrameTypeResponse,
			"id":     req.ID,
			"result": result,
		})
	}
}
