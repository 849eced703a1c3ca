package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/foomo/travelguide-mcp/metrics"
	"github.com/foomo/travelguide-mcp/render"
	"github.com/foomo/travelguide-mcp/scrape"
	"github.com/foomo/travelguide-mcp/service"
	"github.com/foomo/travelguide-mcp/service/vo"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const Version = "0.1.0"

type ListDestinationsRequest struct {
	Tab   string `json:"tab"`   // types or divisions
	Query string `json:"query"` // Optional place name filter
}

type ListDestinationsResponse struct {
	Tab        vo.Tab        `json:"tab"`
	Categories []vo.Category `json:"categories"`
	Budgets    []string      `json:"budgets"`
	Moods      []string      `json:"moods"`
	Greeting   string        `json:"greeting"`
}

type OpenDestinationRequest struct {
	SessionID string `json:"sessionId"` // Empty to start a new session
	Name      string `json:"name"`      // Destination name
}

type PlanTripRequest struct {
	SessionID  string `json:"sessionId"`
	Budget     string `json:"budget"`
	Mood       string `json:"mood"`
	Duration   string `json:"duration"`
	Activities string `json:"activities"`
}

// GuideResponse carries a generated guide together with its rendered blocks.
type GuideResponse struct {
	Session *vo.SessionState  `json:"session"`
	Guide   *vo.TravelGuide   `json:"guide"`
	Blocks  []render.Block    `json:"blocks"`
	Sources []vo.GroundingWeb `json:"sources,omitempty"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Message *vo.ChatMessage `json:"message"`
	Blocks  []render.Block  `json:"blocks"`
	Sent    string          `json:"sent"` // Human readable time
}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type GoHomeRequest struct {
	SessionID string `json:"sessionId"`
	Tab       string `json:"tab"`
}

type SessionResponse struct {
	Session *vo.SessionState `json:"session"`
}

type RenderRequest struct {
	Text string `json:"text"` // Markdown subset
}

type RenderResponse struct {
	Blocks []render.Block `json:"blocks"`
	HTML   string         `json:"html"`
	Text   string         `json:"text"` // Visible text without markup
}

// PlannerResponse carries the planner form options and their defaults.
type PlannerResponse struct {
	Session  *vo.SessionState     `json:"session"`
	Defaults vo.TravelPreferences `json:"defaults"`
	Budgets  []string             `json:"budgets"`
	Moods    []string             `json:"moods"`
}

type ScrapeRequest struct {
	URL      string `json:"url"`      // The URL to scrape
	Selector string `json:"selector"` // CSS selector to extract content
}

type ScrapeResponse struct {
	Summary  *vo.SourceSummary `json:"summary"`
	Markdown string            `json:"markdown"`
	Blocks   []render.Block    `json:"blocks"`
}

// NewServer creates a new MCP server exposing the travel guide tools
func NewServer(logger *zap.Logger, client *http.Client, svc service.Service, recorder metrics.Recorder) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = http.DefaultClient
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	s := server.NewMCPServer(
		"Bangladesh Travel Guide MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("renderMarkdown",
		mcp.WithDescription("Render a Markdown subset (## / ### headings, * / - list items, **bold**, [label](url)) into blocks and HTML"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The Markdown text to render"),
		),
	), mcp.NewTypedToolHandler(getRenderHandler(recorder)))

	s.AddTool(mcp.NewTool("scrapeSource",
		mcp.WithDescription("Fetch a grounding source page and convert it to markdown"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the source page"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector to extract specific content (e.g., '#content', 'article'), defaults to body"),
		),
	), mcp.NewTypedToolHandler(getScrapeHandler(client, recorder)))

	// The remaining tools need the travel service
	if svc == nil {
		return s
	}

	s.AddTool(mcp.NewTool("listDestinations",
		mcp.WithDescription("List curated Bangladesh destinations by category, optionally filtered by name"),
		mcp.WithString("tab",
			mcp.Description("Group destinations by 'types' (default) or 'divisions'"),
			mcp.Enum(string(vo.TabTypes), string(vo.TabDivisions)),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive place name filter"),
		),
	), mcp.NewTypedToolHandler(getListDestinationsHandler(svc)))

	s.AddTool(mcp.NewTool("openDestination",
		mcp.WithDescription("Generate an AI travel guide for a destination and start a chat about it"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The destination, e.g. 'Sajek Valley'"),
		),
		mcp.WithString("sessionId",
			mcp.Description("Existing session id; a new session is created when empty"),
		),
	), mcp.NewTypedToolHandler(getOpenDestinationHandler(logger, svc, recorder)))

	s.AddTool(mcp.NewTool("planTrip",
		mcp.WithDescription("Recommend the best destination and an itinerary for the given preferences"),
		mcp.WithString("budget", mcp.Required(), mcp.Description("One of the catalog budget levels")),
		mcp.WithString("mood", mcp.Required(), mcp.Description("One of the catalog travel moods")),
		mcp.WithString("duration", mcp.Required(), mcp.Description("Trip length in days")),
		mcp.WithString("activities", mcp.Description("Favorite activities")),
		mcp.WithString("sessionId", mcp.Description("Existing session id; a new session is created when empty")),
	), mcp.NewTypedToolHandler(getPlanTripHandler(svc, recorder)))

	s.AddTool(mcp.NewTool("chat",
		mcp.WithDescription("Ask the travel assistant about the destination of a session"),
		mcp.WithString("sessionId", mcp.Required(), mcp.Description("Session id returned by openDestination or planTrip")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The question")),
	), mcp.NewTypedToolHandler(getChatHandler(svc, recorder)))

	s.AddTool(mcp.NewTool("getSession",
		mcp.WithDescription("Get the current screen and chat history of a session"),
		mcp.WithString("sessionId", mcp.Required(), mcp.Description("The session id")),
	), mcp.NewTypedToolHandler(getSessionHandler(svc)))

	s.AddTool(mcp.NewTool("openPlanner",
		mcp.WithDescription("Switch a session to the trip planner and get the form options with their defaults"),
		mcp.WithString("sessionId", mcp.Description("Existing session id; a new session is created when empty")),
	), mcp.NewTypedToolHandler(getOpenPlannerHandler(svc)))

	s.AddTool(mcp.NewTool("goHome",
		mcp.WithDescription("Return a session to the destination list"),
		mcp.WithString("sessionId", mcp.Required(), mcp.Description("The session id")),
		mcp.WithString("tab",
			mcp.Description("Tab to show"),
			mcp.Enum(string(vo.TabTypes), string(vo.TabDivisions)),
		),
	), mcp.NewTypedToolHandler(getGoHomeHandler(svc)))

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}

func renderBlocks(recorder metrics.Recorder, text string) []render.Block {
	blocks := render.Render(text)
	recorder.ObserveRenderedBlocks(len(blocks))
	return blocks
}

func newGuideResponse(recorder metrics.Recorder, state *vo.SessionState) *GuideResponse {
	response := &GuideResponse{Session: state}
	if guide := state.Guide(); guide != nil {
		response.Guide = guide
		response.Blocks = renderBlocks(recorder, string(guide.Content))
		response.Sources = guide.WebSources()
	}
	return response
}

func getRenderHandler(recorder metrics.Recorder) func(ctx context.Context, request mcp.CallToolRequest, args RenderRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args RenderRequest) (*mcp.CallToolResult, error) {
		blocks := renderBlocks(recorder, args.Text)
		html, err := render.HTML(blocks)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(RenderResponse{Blocks: blocks, HTML: html, Text: render.PlainText(blocks)})
	}
}

func getScrapeHandler(client *http.Client, recorder metrics.Recorder) func(ctx context.Context, request mcp.CallToolRequest, args ScrapeRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ScrapeRequest) (*mcp.CallToolResult, error) {
		if args.URL == "" {
			return mcp.NewToolResultError("url is required"), nil
		}

		summary, markdown, err := scrape.Scrape(ctx, client, args.URL, args.Selector)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to scrape content: %v", err)), nil
		}

		return jsonResult(ScrapeResponse{
			Summary:  summary,
			Markdown: string(markdown),
			Blocks:   renderBlocks(recorder, string(markdown)),
		})
	}
}

func getListDestinationsHandler(svc service.Service) func(ctx context.Context, request mcp.CallToolRequest, args ListDestinationsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ListDestinationsRequest) (*mcp.CallToolResult, error) {
		c := svc.Catalog()
		tab := vo.Tab(args.Tab)
		if tab == "" {
			tab = vo.TabTypes
		}
		categories, err := c.Search(tab, args.Query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ListDestinationsResponse{
			Tab:        tab,
			Categories: categories,
			Budgets:    c.Budgets,
			Moods:      c.Moods,
			Greeting:   c.Greeting,
		})
	}
}

func getOpenDestinationHandler(logger *zap.Logger, svc service.Service, recorder metrics.Recorder) func(ctx context.Context, request mcp.CallToolRequest, args OpenDestinationRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args OpenDestinationRequest) (*mcp.CallToolResult, error) {
		if args.Name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}
		if req, ok := httpRequestFromContext(ctx); ok {
			logger.Debug("openDestination", zap.String("remoteAddr", req.RemoteAddr), zap.String("name", args.Name))
		}

		state, err := svc.OpenDestination(ctx, args.SessionID, args.Name)
		if err != nil {
			return mcp.NewToolResultError(service.UserMessage(err)), nil
		}
		return jsonResult(newGuideResponse(recorder, state))
	}
}

func getPlanTripHandler(svc service.Service, recorder metrics.Recorder) func(ctx context.Context, request mcp.CallToolRequest, args PlanTripRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args PlanTripRequest) (*mcp.CallToolResult, error) {
		state, err := svc.PlanTrip(ctx, args.SessionID, vo.TravelPreferences{
			Budget:     args.Budget,
			Mood:       args.Mood,
			Duration:   args.Duration,
			Activities: args.Activities,
		})
		if err != nil {
			return mcp.NewToolResultError(service.UserMessage(err)), nil
		}
		return jsonResult(newGuideResponse(recorder, state))
	}
}

func getChatHandler(svc service.Service, recorder metrics.Recorder) func(ctx context.Context, request mcp.CallToolRequest, args ChatRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ChatRequest) (*mcp.CallToolResult, error) {
		if args.SessionID == "" {
			return mcp.NewToolResultError("sessionId is required"), nil
		}
		reply, err := svc.SendChat(ctx, args.SessionID, args.Message)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to send message: %v", err)), nil
		}
		return jsonResult(ChatResponse{
			Message: reply,
			Blocks:  renderBlocks(recorder, reply.Text),
			Sent:    humanize.Time(reply.Timestamp),
		})
	}
}

func getSessionHandler(svc service.Service) func(ctx context.Context, request mcp.CallToolRequest, args SessionRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SessionRequest) (*mcp.CallToolResult, error) {
		state, err := svc.Session(args.SessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get session: %v", err)), nil
		}
		return jsonResult(SessionResponse{Session: state})
	}
}

func getOpenPlannerHandler(svc service.Service) func(ctx context.Context, request mcp.CallToolRequest, args SessionRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SessionRequest) (*mcp.CallToolResult, error) {
		state, err := svc.OpenPlanner(args.SessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to open planner: %v", err)), nil
		}
		c := svc.Catalog()
		return jsonResult(PlannerResponse{
			Session:  state,
			Defaults: c.DefaultPreferences(),
			Budgets:  c.Budgets,
			Moods:    c.Moods,
		})
	}
}

func getGoHomeHandler(svc service.Service) func(ctx context.Context, request mcp.CallToolRequest, args GoHomeRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GoHomeRequest) (*mcp.CallToolResult, error) {
		if args.SessionID == "" {
			return mcp.NewToolResultError("sessionId is required"), nil
		}
		state, err := svc.GoHome(args.SessionID, vo.Tab(args.Tab))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to go home: %v", err)), nil
		}
		return jsonResult(SessionResponse{Session: state})
	}
}
