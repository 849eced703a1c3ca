package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/foomo/travelguide-mcp/metrics"
	"github.com/foomo/travelguide-mcp/service"
	"github.com/foomo/travelguide-mcp/service/vo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SSEEvent represents an SSE event structure
type SSEEvent struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID       string
	Writer   http.ResponseWriter
	Flusher  http.Flusher
	Done     chan struct{}
	LastSeen time.Time

	mu sync.Mutex
}

// GuideSSEServer streams guide generation and broadcasts generated guides
type GuideSSEServer struct {
	logger       *zap.Logger
	service      service.Service
	recorder     metrics.Recorder
	config       *SSEServerConfig
	clients      map[string]*SSEClient
	clientsMutex sync.RWMutex
	broadcast    chan SSEEvent
	startedAt    time.Time
}

// SSEServerConfig holds configuration for the SSE server
type SSEServerConfig struct {
	KeepaliveInterval time.Duration
	BufferSize        int
	ClientTimeout     time.Duration
}

// DefaultSSEServerConfig returns the default configuration for SSE server
func DefaultSSEServerConfig() *SSEServerConfig {
	return &SSEServerConfig{
		KeepaliveInterval: 30 * time.Second,
		BufferSize:        100,
		ClientTimeout:     60 * time.Second,
	}
}

// NewGuideSSEServer creates a new SSE server and starts its broadcast loop.
// The loop ends when ctx is done.
func NewGuideSSEServer(ctx context.Context, logger *zap.Logger, serviceInstance service.Service, recorder metrics.Recorder, config *SSEServerConfig) *GuideSSEServer {
	if config == nil {
		config = DefaultSSEServerConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	sseServer := &GuideSSEServer{
		logger:    logger,
		service:   serviceInstance,
		recorder:  recorder,
		config:    config,
		clients:   make(map[string]*SSEClient),
		broadcast: make(chan SSEEvent, config.BufferSize),
		startedAt: time.Now(),
	}

	go sseServer.broadcastLoop(ctx)

	return sseServer
}

func newEvent(name string, data interface{}) SSEEvent {
	now := time.Now()
	return SSEEvent{
		ID:        fmt.Sprintf("%s_%d", name, now.UnixNano()),
		Event:     name,
		Data:      data,
		Timestamp: now,
	}
}

// writeEvent writes event in SSE framing and flushes it
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Event, eventJSON); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	flusher.Flush()
	return nil
}

// broadcastLoop handles broadcasting events to all connected clients
func (s *GuideSSEServer) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-s.broadcast:
			s.clientsMutex.RLock()
			clients := make([]*SSEClient, 0, len(s.clients))
			for _, client := range s.clients {
				clients = append(clients, client)
			}
			s.clientsMutex.RUnlock()

			for _, client := range clients {
				if err := s.sendEventToClient(client, event); err != nil {
					s.logger.Error("failed to send event to client", zap.String("clientID", client.ID), zap.Error(err))
					s.removeClient(client.ID)
				}
			}
		}
	}
}

// sendEventToClient sends an SSE event to a specific client
func (s *GuideSSEServer) sendEventToClient(client *SSEClient, event SSEEvent) error {
	client.mu.Lock()
	defer client.mu.Unlock()
	select {
	case <-client.Done:
		return nil
	default:
	}
	if err := writeEvent(client.Writer, client.Flusher, event); err != nil {
		return err
	}
	client.LastSeen = time.Now()
	return nil
}

// addClient adds a new SSE client
func (s *GuideSSEServer) addClient(w http.ResponseWriter) *SSEClient {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return nil
	}

	client := &SSEClient{
		ID:       "client_" + uuid.NewString(),
		Writer:   w,
		Flusher:  flusher,
		Done:     make(chan struct{}),
		LastSeen: time.Now(),
	}

	// Send connection confirmation
	connectEvent := newEvent("connected", map[string]string{"clientID": client.ID, "message": "Connected to travel guide SSE server"})
	if err := s.sendEventToClient(client, connectEvent); err != nil {
		s.logger.Error("failed to send connection event", zap.String("clientID", client.ID), zap.Error(err))
		return nil
	}

	s.clientsMutex.Lock()
	s.clients[client.ID] = client
	count := len(s.clients)
	s.clientsMutex.Unlock()
	s.recorder.SetStreamClients(count)

	s.logger.Info("SSE client connected", zap.String("clientID", client.ID))
	return client
}

// removeClient removes a client from the server
func (s *GuideSSEServer) removeClient(clientID string) {
	s.clientsMutex.Lock()
	client, exists := s.clients[clientID]
	if exists {
		delete(s.clients, clientID)
	}
	count := len(s.clients)
	s.clientsMutex.Unlock()

	if !exists {
		return
	}
	client.mu.Lock()
	close(client.Done)
	client.mu.Unlock()
	s.recorder.SetStreamClients(count)
	s.logger.Info("SSE client disconnected", zap.String("clientID", clientID))
}

// broadcastEvent sends an event to all connected clients
func (s *GuideSSEServer) broadcastEvent(event SSEEvent) {
	select {
	case s.broadcast <- event:
	default:
		s.logger.Warn("broadcast channel full, dropping event", zap.String("eventID", event.ID))
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")
}

// HandleSSE handles SSE client connections
func (s *GuideSSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	setSSEHeaders(w)

	client := s.addClient(w)
	if client == nil {
		return
	}

	ticker := time.NewTicker(s.config.KeepaliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.removeClient(client.ID)
			return
		case <-client.Done:
			return
		case <-ticker.C:
			keepaliveEvent := newEvent("keepalive", map[string]interface{}{"timestamp": time.Now()})
			if err := s.sendEventToClient(client, keepaliveEvent); err != nil {
				s.removeClient(client.ID)
				return
			}
		}
	}
}

// streamGuide writes start, result or error, and completion events for one
// generation request on w.
func (s *GuideSSEServer) streamGuide(w http.ResponseWriter, prefix string, start interface{}, generate func() (*vo.SessionState, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	setSSEHeaders(w)

	if err := writeEvent(w, flusher, newEvent(prefix+"_start", start)); err != nil {
		s.logger.Warn("failed to write start event", zap.Error(err))
		return
	}

	state, err := generate()
	if err != nil {
		errorEvent := newEvent(prefix+"_error", map[string]interface{}{"error": service.UserMessage(err), "session": state})
		if err := writeEvent(w, flusher, errorEvent); err != nil {
			s.logger.Warn("failed to write error event", zap.Error(err))
		}
		return
	}

	response := newGuideResponse(s.recorder, state)
	if err := writeEvent(w, flusher, newEvent(prefix+"_result", response)); err != nil {
		s.logger.Warn("failed to write result event", zap.Error(err))
		return
	}
	if response.Guide != nil {
		s.broadcastEvent(newEvent("guide_generated", map[string]string{"locationName": response.Guide.LocationName}))
	}
	if err := writeEvent(w, flusher, newEvent(prefix+"_complete", map[string]string{"status": "completed"})); err != nil {
		s.logger.Warn("failed to write complete event", zap.Error(err))
	}
}

// HandleGuideSSE handles openDestination requests via SSE
func (s *GuideSSEServer) HandleGuideSSE(w http.ResponseWriter, r *http.Request) {
	var request OpenDestinationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if request.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	s.streamGuide(w, "guide", map[string]string{"name": request.Name}, func() (*vo.SessionState, error) {
		return s.service.OpenDestination(r.Context(), request.SessionID, request.Name)
	})
}

// HandlePlanSSE handles planTrip requests via SSE
func (s *GuideSSEServer) HandlePlanSSE(w http.ResponseWriter, r *http.Request) {
	var request PlanTripRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	prefs := vo.TravelPreferences{
		Budget:     request.Budget,
		Mood:       request.Mood,
		Duration:   request.Duration,
		Activities: request.Activities,
	}
	s.streamGuide(w, "plan", prefs, func() (*vo.SessionState, error) {
		return s.service.PlanTrip(r.Context(), request.SessionID, prefs)
	})
}

// GetConnectedClients returns information about connected clients
func (s *GuideSSEServer) GetConnectedClients() []map[string]interface{} {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	clients := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		client.mu.Lock()
		lastSeen := client.LastSeen
		client.mu.Unlock()
		clients = append(clients, map[string]interface{}{
			"id":        client.ID,
			"lastSeen":  lastSeen,
			"connected": time.Since(lastSeen) < s.config.ClientTimeout,
		})
	}
	return clients
}

// GetStats returns server statistics
func (s *GuideSSEServer) GetStats() map[string]interface{} {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	return map[string]interface{}{
		"connectedClients": len(s.clients),
		"bufferSize":       len(s.broadcast),
		"serverVersion":    Version,
		"started":          humanize.Time(s.startedAt),
	}
}
