package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foomo/travelguide-mcp/catalog"
	"github.com/foomo/travelguide-mcp/service/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeChat struct {
	mu       sync.Mutex
	replies  []string
	err      error
	received []string
}

func (c *fakeChat) Send(_ context.Context, message string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, message)
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", nil
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

type fakeGenerator struct {
	guideErr error
	planErr  error
	chatErr  error
	chat     *fakeChat
	plans    []vo.TravelPreferences
}

func (g *fakeGenerator) GenerateGuide(_ context.Context, location string) (*vo.TravelGuide, error) {
	if g.guideErr != nil {
		return nil, g.guideErr
	}
	return &vo.TravelGuide{
		LocationName: location,
		Content:      "## Overview\n" + vo.Markdown(location) + " is lovely.",
		GroundingChunks: []vo.GroundingChunk{
			{Web: &vo.GroundingWeb{URI: "https://example.com/" + location, Title: location}},
		},
	}, nil
}

func (g *fakeGenerator) RecommendTrip(_ context.Context, prefs vo.TravelPreferences) (*vo.TravelGuide, error) {
	g.plans = append(g.plans, prefs)
	if g.planErr != nil {
		return nil, g.planErr
	}
	return &vo.TravelGuide{LocationName: "Your Personalized Trip Plan", Content: "- **Top Pick**: Sajek Valley"}, nil
}

func (g *fakeGenerator) NewChat(context.Context) (Chat, error) {
	if g.chatErr != nil {
		return nil, g.chatErr
	}
	if g.chat == nil {
		g.chat = &fakeChat{}
	}
	return g.chat, nil
}

func newTestService(t *testing.T, g *fakeGenerator) Service {
	t.Helper()
	c, err := catalog.Load()
	require.NoError(t, err)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewService(zaptest.NewLogger(t), g, c, WithClock(func() time.Time { return fixed }))
}

func TestNewSession(t *testing.T) {
	s := newTestService(t, &fakeGenerator{})
	state := s.NewSession()
	require.NotEmpty(t, state.ID)
	assert.Equal(t, vo.HomeScreen{Tab: vo.TabTypes}, state.Screen)
	assert.False(t, state.HasChat)

	again, err := s.Session(state.ID)
	require.NoError(t, err)
	assert.Equal(t, state, again)

	_, err = s.Session("missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Session("")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOpenDestination(t *testing.T) {
	s := newTestService(t, &fakeGenerator{})

	state, err := s.OpenDestination(context.Background(), "", "  Sajek Valley ")
	require.NoError(t, err)
	require.NotEmpty(t, state.ID)

	screen, ok := state.Screen.(vo.DestinationScreen)
	require.True(t, ok)
	assert.Equal(t, "Sajek Valley", screen.Destination)
	require.NotNil(t, screen.Guide)
	assert.Equal(t, screen.Guide, state.Guide())
	assert.True(t, state.HasChat)
	require.Len(t, state.History, 1)
	assert.Equal(t, vo.ChatRoleModel, state.History[0].Role)
	assert.Equal(t, "Welcome to the guide for Sajek Valley! I can answer deep questions about itineraries, safety concerns, or detailed costs.", state.History[0].Text)
}

func TestOpenDestinationEmptyName(t *testing.T) {
	s := newTestService(t, &fakeGenerator{})
	_, err := s.OpenDestination(context.Background(), "", "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestOpenDestinationFailure(t *testing.T) {
	s := newTestService(t, &fakeGenerator{guideErr: errors.New("quota exceeded")})
	session := s.NewSession()

	state, err := s.OpenDestination(context.Background(), session.ID, "Kuakata")
	require.ErrorIs(t, err, ErrGuideFailed)
	assert.Equal(t, "Failed to load travel guide. Please check your connection or API key.", UserMessage(err))
	assert.Equal(t, vo.DestinationScreen{Destination: "Kuakata"}, state.Screen)
	assert.Nil(t, state.Guide())
	assert.False(t, state.HasChat)
}

func TestPlanTrip(t *testing.T) {
	g := &fakeGenerator{}
	s := newTestService(t, g)
	prefs := vo.TravelPreferences{Budget: "Luxury (High End)", Mood: "Romantic Getaway", Duration: "4", Activities: "boating"}

	state, err := s.PlanTrip(context.Background(), "", prefs)
	require.NoError(t, err)
	assert.Equal(t, []vo.TravelPreferences{prefs}, g.plans)

	screen, ok := state.Screen.(vo.DestinationScreen)
	require.True(t, ok)
	assert.Equal(t, PersonalPlanName, screen.Destination)
	require.Len(t, state.History, 1)
	assert.Equal(t, "I've designed this trip specifically for your romantic getaway mood and luxury (high end) budget. Feel free to ask for adjustments!", state.History[0].Text)
}

func TestPlanTripFailureStaysOnPlanner(t *testing.T) {
	s := newTestService(t, &fakeGenerator{planErr: errors.New("boom")})
	session := s.NewSession()

	state, err := s.PlanTrip(context.Background(), session.ID, vo.TravelPreferences{Budget: "Budget (Low Cost)", Mood: "Family Vacation", Duration: "2"})
	require.ErrorIs(t, err, ErrPlanFailed)
	assert.Equal(t, "Failed to generate a travel plan. Please try again.", UserMessage(err))
	assert.Equal(t, vo.PlannerScreen{}, state.Screen)
}

func TestPlanTripValidation(t *testing.T) {
	g := &fakeGenerator{}
	s := newTestService(t, g)
	for _, prefs := range []vo.TravelPreferences{
		{Budget: "Free", Mood: "Family Vacation", Duration: "2"},
		{Budget: "Budget (Low Cost)", Mood: "Sleepy", Duration: "2"},
		{Budget: "Budget (Low Cost)", Mood: "Family Vacation", Duration: " "},
	} {
		_, err := s.PlanTrip(context.Background(), "", prefs)
		require.Error(t, err, "%+v", prefs)
	}
	assert.Empty(t, g.plans)
}

func TestNavigation(t *testing.T) {
	s := newTestService(t, &fakeGenerator{})
	session := s.NewSession()

	state, err := s.OpenPlanner(session.ID)
	require.NoError(t, err)
	assert.Equal(t, vo.PlannerScreen{}, state.Screen)

	state, err = s.GoHome(session.ID, vo.TabDivisions)
	require.NoError(t, err)
	assert.Equal(t, vo.HomeScreen{Tab: vo.TabDivisions}, state.Screen)

	state, err = s.GoHome(session.ID, "")
	require.NoError(t, err)
	assert.Equal(t, vo.HomeScreen{Tab: vo.TabTypes}, state.Screen)

	_, err = s.GoHome(session.ID, "regions")
	require.Error(t, err)

	_, err = s.OpenPlanner("missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSendChat(t *testing.T) {
	g := &fakeGenerator{chat: &fakeChat{replies: []string{"Take the night bus.", "  "}}}
	s := newTestService(t, g)
	state, err := s.OpenDestination(context.Background(), "", "Bandarban")
	require.NoError(t, err)

	reply, err := s.SendChat(context.Background(), state.ID, "How do I get there?")
	require.NoError(t, err)
	assert.Equal(t, vo.ChatRoleModel, reply.Role)
	assert.Equal(t, "Take the night bus.", reply.Text)

	reply, err = s.SendChat(context.Background(), state.ID, "And back?")
	require.NoError(t, err)
	assert.Equal(t, "I didn't quite catch that.", reply.Text)

	state, err = s.Session(state.ID)
	require.NoError(t, err)
	require.Len(t, state.History, 5)
	assert.Equal(t, vo.ChatRoleUser, state.History[1].Role)
	assert.Equal(t, "How do I get there?", state.History[1].Text)
	assert.Equal(t, []string{"How do I get there?", "And back?"}, g.chat.received)
}

func TestSendChatFallback(t *testing.T) {
	g := &fakeGenerator{chat: &fakeChat{err: errors.New("unavailable")}}
	s := newTestService(t, g)
	state, err := s.OpenDestination(context.Background(), "", "Jaflong")
	require.NoError(t, err)

	reply, err := s.SendChat(context.Background(), state.ID, "Is it safe?")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I'm having trouble connecting right now.", reply.Text)
}

func TestSendChatErrors(t *testing.T) {
	s := newTestService(t, &fakeGenerator{})
	session := s.NewSession()

	_, err := s.SendChat(context.Background(), session.ID, "  ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.SendChat(context.Background(), session.ID, "hello")
	require.ErrorIs(t, err, ErrNoChat)

	_, err = s.SendChat(context.Background(), "", "hello")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStateJSON(t *testing.T) {
	s := newTestService(t, &fakeGenerator{})
	state, err := s.OpenDestination(context.Background(), "", "Ratargul Swamp Forest")
	require.NoError(t, err)

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded vo.SessionState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, state.ID, decoded.ID)
	assert.Equal(t, state.Screen, decoded.Screen)
	assert.True(t, decoded.HasChat)
	require.Len(t, decoded.History, 1)
	assert.True(t, state.History[0].Timestamp.Equal(decoded.History[0].Timestamp))
}

func sessionCount(t *testing.T, s Service) int {
	t.Helper()
	impl, ok := s.(*service)
	require.True(t, ok)
	impl.sessionsMutex.Lock()
	defer impl.sessionsMutex.Unlock()
	return len(impl.sessions)
}

func TestFailedAnonymousRequestsAreNotStored(t *testing.T) {
	s := newTestService(t, &fakeGenerator{guideErr: errors.New("offline"), planErr: errors.New("offline")})
	prefs := vo.TravelPreferences{Budget: "Budget (Low Cost)", Mood: "Family Vacation", Duration: "2"}

	for i := 0; i < 20; i++ {
		state, err := s.OpenDestination(context.Background(), "", "Sajek Valley")
		require.ErrorIs(t, err, ErrGuideFailed)
		assert.Nil(t, state)

		state, err = s.PlanTrip(context.Background(), "", prefs)
		require.ErrorIs(t, err, ErrPlanFailed)
		assert.Nil(t, state)
	}
	assert.Equal(t, 0, sessionCount(t, s))
}

func TestSessionLimits(t *testing.T) {
	c, err := catalog.Load()
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewService(zaptest.NewLogger(t), &fakeGenerator{}, c,
		WithClock(func() time.Time { return now }),
		WithSessionLimits(3, time.Hour),
	)

	first := s.NewSession()
	now = now.Add(time.Minute)
	second := s.NewSession()
	now = now.Add(time.Minute)
	third := s.NewSession()
	now = now.Add(time.Minute)

	// touching first makes second the least recently used
	_, err = s.Session(first.ID)
	require.NoError(t, err)
	now = now.Add(time.Minute)

	fourth := s.NewSession()
	assert.Equal(t, 3, sessionCount(t, s))
	_, err = s.Session(second.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	for _, id := range []string{first.ID, third.ID, fourth.ID} {
		_, err = s.Session(id)
		require.NoError(t, err)
	}

	now = now.Add(2 * time.Hour)
	fifth := s.NewSession()
	assert.Equal(t, 1, sessionCount(t, s))
	_, err = s.Session(fifth.ID)
	require.NoError(t, err)
}

type blockingGenerator struct {
	fakeGenerator
	started chan struct{}
	release chan struct{}
}

func (g *blockingGenerator) GenerateGuide(ctx context.Context, location string) (*vo.TravelGuide, error) {
	close(g.started)
	<-g.release
	return g.fakeGenerator.GenerateGuide(ctx, location)
}

func TestSessionReadableWhileGenerating(t *testing.T) {
	g := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	c, err := catalog.Load()
	require.NoError(t, err)
	s := NewService(zaptest.NewLogger(t), g, c)
	session := s.NewSession()

	done := make(chan error, 1)
	go func() {
		_, err := s.OpenDestination(context.Background(), session.ID, "Srimangal")
		done <- err
	}()
	<-g.started

	state, err := s.Session(session.ID)
	require.NoError(t, err)
	assert.True(t, state.Loading)
	assert.Equal(t, vo.DestinationScreen{Destination: "Srimangal"}, state.Screen)

	close(g.release)
	require.NoError(t, <-done)

	state, err = s.Session(session.ID)
	require.NoError(t, err)
	assert.False(t, state.Loading)
	assert.NotNil(t, state.Guide())
}
