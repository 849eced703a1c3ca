package vo

import "time"

type Markdown string

type GroundingWeb struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk is a citation returned alongside generated text.
type GroundingChunk struct {
	Web *GroundingWeb `json:"web,omitempty"`
}

type TravelGuide struct {
	LocationName    string           `json:"locationName"`
	Content         Markdown         `json:"content"` // Markdown formatted text
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// WebSources returns the web citations of the guide, skipping chunks without a uri.
func (g *TravelGuide) WebSources() []GroundingWeb {
	var sources []GroundingWeb
	for _, chunk := range g.GroundingChunks {
		if chunk.Web != nil && chunk.Web.URI != "" {
			sources = append(sources, *chunk.Web)
		}
	}
	return sources
}

type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type TravelPreferences struct {
	Budget     string `json:"budget"`
	Mood       string `json:"mood"`
	Duration   string `json:"duration"` // days
	Activities string `json:"activities"`
}

// Category groups places either by division or by kind of trip.
type Category struct {
	Name   string   `json:"name" yaml:"name"`
	Icon   string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Places []string `json:"places" yaml:"places"`
}

type SourceSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`       // Page title
	Description string   `json:"description"` // Meta description
	Keywords    []string `json:"keywords"`    // Meta keywords
}
