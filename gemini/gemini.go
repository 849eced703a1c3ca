// Package gemini implements service.Generator on top of the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/foomo/travelguide-mcp/service"
	"github.com/foomo/travelguide-mcp/service/vo"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultGuideModel = "gemini-2.5-flash"
	DefaultPlanModel  = "gemini-3-pro-preview"
	DefaultChatModel  = "gemini-3-pro-preview"

	thinkingBudget   = 32768
	guideTemperature = 0.4
)

type Config struct {
	APIKey     string
	GuideModel string
	PlanModel  string
	ChatModel  string
	Attempts   uint
	RetryDelay time.Duration
	// BreakerFailures consecutive failures open the circuit for BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func (c *Config) defaults() {
	if c.GuideModel == "" {
		c.GuideModel = DefaultGuideModel
	}
	if c.PlanModel == "" {
		c.PlanModel = DefaultPlanModel
	}
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout == 0 {
		c.BreakerTimeout = 30 * time.Second
	}
}

// models is the part of genai.Models used here.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type chatSender interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Provider struct {
	logger  *zap.Logger
	config  Config
	models  models
	newChat func(ctx context.Context, model string, config *genai.GenerateContentConfig) (chatSender, error)
	breaker *gobreaker.CircuitBreaker
}

// New creates a Provider using the Gemini developer API.
func New(ctx context.Context, logger *zap.Logger, config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	newChat := func(ctx context.Context, model string, cfg *genai.GenerateContentConfig) (chatSender, error) {
		return client.Chats.Create(ctx, model, cfg, nil)
	}
	return newProvider(logger, config, client.Models, newChat), nil
}

func newProvider(
	logger *zap.Logger,
	config Config,
	m models,
	newChat func(ctx context.Context, model string, config *genai.GenerateContentConfig) (chatSender, error),
) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.defaults()
	p := &Provider{
		logger:  logger,
		config:  config,
		models:  m,
		newChat: newChat,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "gemini",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		Timeout: config.BreakerTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return p
}

var _ service.Generator = (*Provider)(nil)

func (p *Provider) GenerateGuide(ctx context.Context, location string) (*vo.TravelGuide, error) {
	resp, err := p.generate(ctx, p.config.GuideModel, guidePrompt(location), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(guideSystemInstruction, genai.RoleUser),
		// GoogleMaps grounding is only accepted by the Vertex AI backend.
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature:       genai.Ptr[float32](guideTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate guide for %q: %w", location, err)
	}
	return &vo.TravelGuide{
		LocationName:    location,
		Content:         vo.Markdown(textOr(resp, guideFallback)),
		GroundingChunks: groundingChunks(resp),
	}, nil
}

func (p *Provider) RecommendTrip(ctx context.Context, prefs vo.TravelPreferences) (*vo.TravelGuide, error) {
	resp, err := p.generate(ctx, p.config.PlanModel, planPrompt(prefs), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(plannerSystemInstruction, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](thinkingBudget)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recommend trip: %w", err)
	}
	return &vo.TravelGuide{
		LocationName:    planLocationName,
		Content:         vo.Markdown(textOr(resp, planFallback)),
		GroundingChunks: groundingChunks(resp),
	}, nil
}

func (p *Provider) NewChat(ctx context.Context) (service.Chat, error) {
	sender, err := p.newChat(ctx, p.config.ChatModel, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(chatSystemInstruction, genai.RoleUser),
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](thinkingBudget)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return &chat{provider: p, sender: sender}, nil
}

func (p *Provider) generate(ctx context.Context, model, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return p.call(ctx, func() (*genai.GenerateContentResponse, error) {
		return p.models.GenerateContent(ctx, model, genai.Text(prompt), config)
	})
}

// call runs fn through the circuit breaker, retrying transient failures.
func (p *Provider) call(ctx context.Context, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	return retry.DoWithData(
		func() (*genai.GenerateContentResponse, error) {
			res, err := p.breaker.Execute(func() (interface{}, error) {
				return fn()
			})
			if err != nil {
				return nil, err
			}
			return res.(*genai.GenerateContentResponse), nil
		},
		retry.Context(ctx),
		retry.Attempts(p.config.Attempts),
		retry.Delay(p.config.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, gobreaker.ErrOpenState) &&
				!errors.Is(err, gobreaker.ErrTooManyRequests) &&
				!errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("retrying gemini request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

type chat struct {
	provider *Provider
	sender   chatSender
}

// Send does not retry: a failed message may already be part of the remote history.
func (c *chat) Send(ctx context.Context, message string) (string, error) {
	res, err := c.provider.breaker.Execute(func() (interface{}, error) {
		return c.sender.SendMessage(ctx, genai.Part{Text: message})
	})
	if err != nil {
		return "", fmt.Errorf("failed to send chat message: %w", err)
	}
	resp, _ := res.(*genai.GenerateContentResponse)
	return strings.TrimSpace(textOr(resp, "")), nil
}

func textOr(resp *genai.GenerateContentResponse, fallback string) string {
	if resp == nil {
		return fallback
	}
	if text := resp.Text(); strings.TrimSpace(text) != "" {
		return text
	}
	return fallback
}

func groundingChunks(resp *genai.GenerateContentResponse) []vo.GroundingChunk {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var chunks []vo.GroundingChunk
	for _, c := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if c == nil || c.Web == nil {
			continue
		}
		chunks = append(chunks, vo.GroundingChunk{Web: &vo.GroundingWeb{URI: c.Web.URI, Title: c.Web.Title}})
	}
	return chunks
}
