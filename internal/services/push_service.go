package services

import (
	"encoding/json"
	"sync"
	"time"

	"jobsboard-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Connection is one attached WebSocket client
type Connection struct {
	ID       string          `json:"id"`
	Conn     *websocket.Conn `json:"-"`
	Send     chan []byte     `json:"-"`
	LastPing time.Time       `json:"last_ping"`
}

// PushMessage is the envelope for every pushed frame
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	Data      interface{} `json:"data"`
}

// PushService broadcasts workflow progress to attached WebSocket clients.
// Every client sees every run; the gateway serves a single operator wallet,
// so there is no per-user routing.
type PushService struct {
	connections map[string]*Connection
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

// NewPushService creates the push service and starts its dispatch loop
func NewPushService() *PushService {
	service := &PushService{
		connections: make(map[string]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}
	go service.run()
	return service
}

func (s *PushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)
		case conn := <-s.unregister:
			s.handleUnregister(conn)
		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

// NewConnection wraps an upgraded WebSocket connection for registration
func NewConnection(conn *websocket.Conn) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		Conn:     conn,
		Send:     make(chan []byte, 64),
		LastPing: time.Now(),
	}
}

// RegisterConnection attaches a connection to the push service
func (s *PushService) RegisterConnection(conn *Connection) {
	s.register <- conn
}

// UnregisterConnection detaches and closes a connection
func (s *PushService) UnregisterConnection(conn *Connection) {
	s.unregister <- conn
}

// NotifyWorkflow pushes the current state of a workflow run. Implements the
// ProgressNotifier interface consumed by the orchestrator.
func (s *PushService) NotifyWorkflow(run *WorkflowRun) {
	s.broadcast("workflow_update", run)
}

// NotifyJobsChanged nudges clients to refresh their job list
func (s *PushService) NotifyJobsChanged(jobID string) {
	s.broadcast("jobs_changed", map[string]string{"job_id": jobID})
}

func (s *PushService) broadcast(msgType string, data interface{}) {
	message := PushMessage{
		Type:      msgType,
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		Data:      data,
	}
	select {
	case s.hub <- message:
	default:
		// A full hub means clients lag far behind live progress; dropping the
		// frame is better than stalling a workflow step.
		logrus.Warn("Push hub full, dropping message")
	}
}

func (s *PushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.connections[conn.ID] = conn
	metrics.WSConnectionsActive.Set(float64(len(s.connections)))
	logrus.WithField("connection_id", conn.ID).Info("WebSocket connection registered")
}

func (s *PushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.connections[conn.ID]; !ok {
		return
	}
	delete(s.connections, conn.ID)
	close(conn.Send)
	if conn.Conn != nil {
		conn.Conn.Close()
	}
	metrics.WSConnectionsActive.Set(float64(len(s.connections)))
	logrus.WithField("connection_id", conn.ID).Info("WebSocket connection unregistered")
}

func (s *PushService) handleBroadcast(message PushMessage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.connections) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		logrus.WithField("error", err.Error()).Error("Failed to marshal push message")
		return
	}

	for _, conn := range s.connections {
		select {
		case conn.Send <- data:
			metrics.WSMessagesPushed.Inc()
		default:
			// Slow consumer; skip rather than block the dispatch loop.
		}
	}
}

// ConnectionCount returns the number of attached clients
func (s *PushService) ConnectionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}
