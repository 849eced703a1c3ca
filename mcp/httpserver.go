package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/foomo/travelguide-mcp/metrics"
	"github.com/foomo/travelguide-mcp/render"
	"github.com/foomo/travelguide-mcp/service"
	"github.com/foomo/travelguide-mcp/service/vo"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// httpRequestKey is a custom context key for storing the original HTTP request
type httpRequestKey struct{}

// withHTTPRequest adds the original HTTP request to the context
func withHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

// httpRequestFromContext extracts the original HTTP request from the context
func httpRequestFromContext(ctx context.Context) (*http.Request, bool) {
	req, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	return req, ok
}

// httpContextFunc extracts the original HTTP request and adds it to the context
func httpContextFunc(ctx context.Context, r *http.Request) context.Context {
	return withHTTPRequest(ctx, r)
}

// NewMcpHTTPServer creates a new MCP HTTP server with traditional MCP endpoints
func NewMcpHTTPServer(s *server.MCPServer, endpoint string) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
		server.WithHTTPContextFunc(httpContextFunc),
	)
}

// HTTPServerConfig configures NewMcpHTTPSSEServer
type HTTPServerConfig struct {
	Endpoint string
	SSE      *SSEServerConfig
	Recorder metrics.Recorder
	// Gatherer serves /metrics when set
	Gatherer prometheus.Gatherer
}

// McpHTTPSSEServer combines MCP HTTP server with SSE capabilities
type McpHTTPSSEServer struct {
	mux       *http.ServeMux
	sseServer *GuideSSEServer
}

// NewMcpHTTPSSEServer creates a new MCP server with HTTP, SSE, export and metrics endpoints
func NewMcpHTTPSSEServer(ctx context.Context, logger *zap.Logger, s *server.MCPServer, serviceInstance service.Service, config HTTPServerConfig) *McpHTTPSSEServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := config.Endpoint
	sseServer := NewGuideSSEServer(ctx, logger, serviceInstance, config.Recorder, config.SSE)

	mux := http.NewServeMux()

	mux.Handle(endpoint, NewMcpHTTPServer(s, endpoint))

	mux.HandleFunc(endpoint+"/sse", sseServer.HandleSSE)
	mux.HandleFunc(endpoint+"/sse/guide", sseServer.HandleGuideSSE)
	mux.HandleFunc(endpoint+"/sse/plan", sseServer.HandlePlanSSE)
	mux.HandleFunc(endpoint+"/sse/clients", func(w http.ResponseWriter, r *http.Request) {
		clients := sseServer.GetConnectedClients()
		writeJSON(logger, w, map[string]interface{}{
			"connectedClients": len(clients),
			"clients":          clients,
		})
	})
	mux.HandleFunc(endpoint+"/sse/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, sseServer.GetStats())
	})
	mux.HandleFunc(endpoint+"/export", exportHandler(logger, serviceInstance))
	if config.Gatherer != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(config.Gatherer))
	}

	return &McpHTTPSSEServer{
		mux:       mux,
		sseServer: sseServer,
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

// exportHandler serves the guide of a session as a standalone HTML page named
// after the selected destination
func exportHandler(logger *zap.Logger, serviceInstance service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if serviceInstance == nil {
			http.Error(w, "Travel service not available", http.StatusServiceUnavailable)
			return
		}
		state, err := serviceInstance.Session(r.URL.Query().Get("session"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		screen, ok := state.Screen.(vo.DestinationScreen)
		if !ok || screen.Guide == nil {
			http.Error(w, "session has no guide", http.StatusNotFound)
			return
		}
		guide := screen.Guide
		page, err := render.Document(guide.LocationName, render.Render(string(guide.Content)))
		if err != nil {
			logger.Error("failed to export guide", zap.String("sessionID", state.ID), zap.Error(err))
			http.Error(w, "failed to export guide", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="`+exportFilename(screen.Destination)+`"`)
		_, _ = w.Write([]byte(page))
	}
}

// exportFilename replaces whitespace runs with underscores
func exportFilename(name string) string {
	var out []rune
	space := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			space = true
		case r == '"' || r == '/' || r == '\\':
			continue
		default:
			if space && len(out) > 0 {
				out = append(out, '_')
			}
			space = false
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "itinerary.html"
	}
	return string(out) + ".html"
}

// ServeHTTP implements http.Handler
func (s *McpHTTPSSEServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// GetSSEServer returns the underlying SSE server for direct access
func (s *McpHTTPSSEServer) GetSSEServer() *GuideSSEServer {
	return s.sseServer
}
