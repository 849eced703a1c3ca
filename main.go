package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/foomo/travelguide-mcp/catalog"
	"github.com/foomo/travelguide-mcp/gemini"
	"github.com/foomo/travelguide-mcp/mcp"
	"github.com/foomo/travelguide-mcp/metrics"
	"github.com/foomo/travelguide-mcp/service"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var CLI struct {
	APIKey   string           `name:"api-key" help:"Gemini API key" env:"GEMINI_API_KEY,API_KEY"`
	HTTP     string           `name:"http" help:"HTTP server address (e.g., ':8080'), stdio mode when empty"`
	Endpoint string           `help:"MCP endpoint path" default:"/mcp"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	GuideModel string        `help:"Model for destination guides" default:"${guideModel}"`
	PlanModel  string        `help:"Model for trip plans" default:"${planModel}"`
	ChatModel  string        `help:"Model for the travel assistant chat" default:"${chatModel}"`
	Attempts   uint          `help:"Attempts per generation request" default:"3"`
	Timeout    time.Duration `help:"Timeout for outgoing scrape requests" default:"30s"`
}

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	kong.Parse(&CLI,
		kong.Name("travelguide-mcp"),
		kong.Description("Bangladesh travel guide MCP server"),
		kong.Vars{
			"version":    mcp.Version,
			"guideModel": gemini.DefaultGuideModel,
			"planModel":  gemini.DefaultPlanModel,
			"chatModel":  gemini.DefaultChatModel,
		},
	)

	logger := newLogger(CLI.Verbose)
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("travelguide-mcp failed", zap.Error(err))
	}
}

func newLogger(verbose bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		config := zap.NewProductionConfig()
		// stdout carries the stdio transport
		config.OutputPaths = []string{"stderr"}
		logger, err = config.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func run(logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := catalog.Load()
	if err != nil {
		return err
	}

	provider, err := gemini.New(ctx, logger.Named("gemini"), gemini.Config{
		APIKey:     CLI.APIKey,
		GuideModel: CLI.GuideModel,
		PlanModel:  CLI.PlanModel,
		ChatModel:  CLI.ChatModel,
		Attempts:   CLI.Attempts,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(registry)

	svc := service.NewService(logger.Named("service"), provider, c, service.WithRecorder(recorder))
	client := &http.Client{Timeout: CLI.Timeout}
	s := mcp.NewServer(logger.Named("mcp"), client, svc, recorder)

	if CLI.HTTP == "" {
		logger.Info("starting MCP server in stdio mode")
		return server.ServeStdio(s)
	}

	handler := mcp.NewMcpHTTPSSEServer(ctx, logger.Named("http"), s, svc, mcp.HTTPServerConfig{
		Endpoint: CLI.Endpoint,
		SSE:      mcp.DefaultSSEServerConfig(),
		Recorder: recorder,
		Gatherer: registry,
	})
	httpServer := &http.Server{
		Addr:              CLI.HTTP,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()
	logger.Info("starting MCP server", zap.String("address", CLI.HTTP), zap.String("endpoint", CLI.Endpoint))

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
