package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/foomo/travelguide-mcp/catalog"
	"github.com/foomo/travelguide-mcp/metrics"
	"github.com/foomo/travelguide-mcp/service/vo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	PersonalPlanName = "My Personal Plan"

	chatFallbackReply = "Sorry, I'm having trouble connecting right now."
	chatEmptyReply    = "I didn't quite catch that."
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoChat          = errors.New("no chat session for this destination")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrEmptyQuery      = errors.New("destination name is empty")
	ErrGuideFailed     = errors.New("failed to load travel guide")
	ErrPlanFailed      = errors.New("failed to generate travel plan")
)

// UserMessage returns the text shown to users for err.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrGuideFailed):
		return "Failed to load travel guide. Please check your connection or API key."
	case errors.Is(err, ErrPlanFailed):
		return "Failed to generate a travel plan. Please try again."
	default:
		return err.Error()
	}
}

// Generator is the capability the service needs from a text generation provider.
type Generator interface {
	GenerateGuide(ctx context.Context, location string) (*vo.TravelGuide, error)
	RecommendTrip(ctx context.Context, prefs vo.TravelPreferences) (*vo.TravelGuide, error)
	NewChat(ctx context.Context) (Chat, error)
}

// Chat is a conversation with the provider that keeps its own history.
type Chat interface {
	Send(ctx context.Context, message string) (string, error)
}

type Service interface {
	Catalog() *catalog.Catalog
	NewSession() *vo.SessionState
	Session(sessionID string) (*vo.SessionState, error)
	OpenDestination(ctx context.Context, sessionID, name string) (*vo.SessionState, error)
	OpenPlanner(sessionID string) (*vo.SessionState, error)
	PlanTrip(ctx context.Context, sessionID string, prefs vo.TravelPreferences) (*vo.SessionState, error)
	GoHome(sessionID string, tab vo.Tab) (*vo.SessionState, error)
	SendChat(ctx context.Context, sessionID, message string) (*vo.ChatMessage, error)
}

const (
	DefaultMaxSessions        = 1000
	DefaultSessionIdleTimeout = 2 * time.Hour
)

type service struct {
	logger      *zap.Logger
	generator   Generator
	catalog     *catalog.Catalog
	recorder    metrics.Recorder
	now         func() time.Time
	maxSessions int
	idleTimeout time.Duration

	sessionsMutex sync.Mutex
	sessions      map[string]*session
}

type session struct {
	mu      sync.Mutex
	id      string
	screen  vo.Screen
	loading bool
	chat    Chat
	history []vo.ChatMessage

	// lastUsed is guarded by service.sessionsMutex
	lastUsed time.Time
}

type Option func(*service)

func WithRecorder(r metrics.Recorder) Option {
	return func(s *service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithSessionLimits caps the number of stored sessions and evicts sessions
// unused for longer than idle. Zero disables the respective limit.
func WithSessionLimits(maxSessions int, idle time.Duration) Option {
	return func(s *service) {
		s.maxSessions = maxSessions
		s.idleTimeout = idle
	}
}

func NewService(logger *zap.Logger, generator Generator, c *catalog.Catalog, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		logger:      logger,
		generator:   generator,
		catalog:     c,
		recorder:    metrics.NoopRecorder{},
		now:         time.Now,
		maxSessions: DefaultMaxSessions,
		idleTimeout: DefaultSessionIdleTimeout,
		sessions:    map[string]*session{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *service) NewSession() *vo.SessionState {
	sess := newSession()
	s.register(sess)
	return sess.state()
}

func newSession() *session {
	return &session{id: uuid.NewString(), screen: vo.HomeScreen{Tab: vo.TabTypes}}
}

// register stores sess, evicting idle sessions and, when the store is full,
// the least recently used one.
func (s *service) register(sess *session) {
	now := s.now()
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	var oldest *session
	for id, other := range s.sessions {
		if s.idleTimeout > 0 && now.Sub(other.lastUsed) > s.idleTimeout {
			delete(s.sessions, id)
			s.logger.Debug("idle session evicted", zap.String("sessionID", id))
			continue
		}
		if oldest == nil || other.lastUsed.Before(oldest.lastUsed) {
			oldest = other
		}
	}
	if s.maxSessions > 0 && oldest != nil && len(s.sessions) >= s.maxSessions {
		delete(s.sessions, oldest.id)
		s.logger.Debug("session evicted", zap.String("sessionID", oldest.id), zap.Int("maxSessions", s.maxSessions))
	}

	sess.lastUsed = now
	s.sessions[sess.id] = sess
	s.logger.Debug("session created", zap.String("sessionID", sess.id))
}

// session returns the stored session for id. An empty id yields a new session
// that is not stored yet; isNew reports that case and the caller registers it
// once the operation succeeds.
func (s *service) session(id string) (sess *session, isNew bool, err error) {
	if id == "" {
		return newSession(), true, nil
	}
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastUsed = s.now()
	return sess, false, nil
}

func (s *service) Session(sessionID string) (*vo.SessionState, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrSessionNotFound)
	}
	sess, _, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state(), nil
}

// begin shows screen as loading. The session lock is not held during
// generation so reads of the session stay responsive.
func (sess *session) begin(screen vo.Screen) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.screen = screen
	sess.loading = true
}

// failed ends loading after a failed generation. New sessions are dropped so
// nothing unreachable is stored.
func (s *service) failed(sess *session, isNew bool, err error) (*vo.SessionState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.loading = false
	if isNew {
		return nil, err
	}
	return sess.state(), err
}

func (s *service) OpenDestination(ctx context.Context, sessionID, name string) (*vo.SessionState, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyQuery
	}
	sess, isNew, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.begin(vo.DestinationScreen{Destination: name})

	start := s.now()
	guide, err := s.generator.GenerateGuide(ctx, name)
	s.recorder.ObserveGeneration(metrics.KindGuide, s.now().Sub(start), err == nil)
	if err != nil {
		s.logger.Error("failed to generate guide", zap.String("sessionID", sess.id), zap.String("destination", name), zap.Error(err))
		return s.failed(sess, isNew, fmt.Errorf("%w: %w", ErrGuideFailed, err))
	}

	chat, err := s.generator.NewChat(ctx)
	if err != nil {
		s.logger.Error("failed to create chat", zap.String("sessionID", sess.id), zap.Error(err))
		return s.failed(sess, isNew, fmt.Errorf("%w: %w", ErrGuideFailed, err))
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.loading = false
	sess.screen = vo.DestinationScreen{Destination: name, Guide: guide}
	sess.chat = chat
	sess.history = []vo.ChatMessage{{
		Role:      vo.ChatRoleModel,
		Text:      fmt.Sprintf("Welcome to the guide for %s! I can answer deep questions about itineraries, safety concerns, or detailed costs.", guide.LocationName),
		Timestamp: s.now(),
	}}
	if isNew {
		s.register(sess)
	}
	s.logger.Info("guide generated", zap.String("sessionID", sess.id), zap.String("destination", name), zap.Int("sources", len(guide.GroundingChunks)))
	return sess.state(), nil
}

func (s *service) OpenPlanner(sessionID string) (*vo.SessionState, error) {
	sess, isNew, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.screen = vo.PlannerScreen{}
	if isNew {
		s.register(sess)
	}
	return sess.state(), nil
}

func (s *service) PlanTrip(ctx context.Context, sessionID string, prefs vo.TravelPreferences) (*vo.SessionState, error) {
	if err := s.validatePreferences(prefs); err != nil {
		return nil, err
	}
	sess, isNew, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.begin(vo.PlannerScreen{})

	start := s.now()
	guide, err := s.generator.RecommendTrip(ctx, prefs)
	s.recorder.ObserveGeneration(metrics.KindPlan, s.now().Sub(start), err == nil)
	if err != nil {
		s.logger.Error("failed to plan trip", zap.String("sessionID", sess.id), zap.Error(err))
		return s.failed(sess, isNew, fmt.Errorf("%w: %w", ErrPlanFailed, err))
	}
	chat, err := s.generator.NewChat(ctx)
	if err != nil {
		s.logger.Error("failed to create chat", zap.String("sessionID", sess.id), zap.Error(err))
		return s.failed(sess, isNew, fmt.Errorf("%w: %w", ErrPlanFailed, err))
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.loading = false
	sess.screen = vo.DestinationScreen{Destination: PersonalPlanName, Guide: guide}
	sess.chat = chat
	sess.history = []vo.ChatMessage{{
		Role: vo.ChatRoleModel,
		Text: fmt.Sprintf("I've designed this trip specifically for your %s mood and %s budget. Feel free to ask for adjustments!",
			strings.ToLower(prefs.Mood), strings.ToLower(prefs.Budget)),
		Timestamp: s.now(),
	}}
	if isNew {
		s.register(sess)
	}
	return sess.state(), nil
}

func (s *service) validatePreferences(prefs vo.TravelPreferences) error {
	if s.catalog != nil {
		if !s.catalog.IsBudget(prefs.Budget) {
			return fmt.Errorf("unknown budget %q", prefs.Budget)
		}
		if !s.catalog.IsMood(prefs.Mood) {
			return fmt.Errorf("unknown mood %q", prefs.Mood)
		}
	}
	if strings.TrimSpace(prefs.Duration) == "" {
		return errors.New("duration is required")
	}
	return nil
}

func (s *service) GoHome(sessionID string, tab vo.Tab) (*vo.SessionState, error) {
	if tab == "" {
		tab = vo.TabTypes
	}
	if tab != vo.TabTypes && tab != vo.TabDivisions {
		return nil, fmt.Errorf("unknown tab %q", tab)
	}
	sess, isNew, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.screen = vo.HomeScreen{Tab: tab}
	if isNew {
		s.register(sess)
	}
	return sess.state(), nil
}

// SendChat appends the user message and the reply to the history. Provider
// failures produce a fallback reply instead of an error.
func (s *service) SendChat(ctx context.Context, sessionID, message string) (*vo.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrSessionNotFound)
	}
	sess, _, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.chat == nil {
		return nil, ErrNoChat
	}

	sess.history = append(sess.history, vo.ChatMessage{Role: vo.ChatRoleUser, Text: message, Timestamp: s.now()})

	start := s.now()
	text, err := sess.chat.Send(ctx, message)
	s.recorder.ObserveGeneration(metrics.KindChat, s.now().Sub(start), err == nil)
	fallback := false
	switch {
	case err != nil:
		s.logger.Warn("chat error", zap.String("sessionID", sess.id), zap.Error(err))
		text, fallback = chatFallbackReply, true
	case strings.TrimSpace(text) == "":
		text = chatEmptyReply
	}
	s.recorder.IncChatMessage(fallback)

	reply := vo.ChatMessage{Role: vo.ChatRoleModel, Text: text, Timestamp: s.now()}
	sess.history = append(sess.history, reply)
	return &reply, nil
}

// state copies the session; callers must hold mu unless the session is new.
func (sess *session) state() *vo.SessionState {
	history := make([]vo.ChatMessage, len(sess.history))
	copy(history, sess.history)
	return &vo.SessionState{
		ID:      sess.id,
		Screen:  sess.screen,
		Loading: sess.loading,
		HasChat: sess.chat != nil,
		History: history,
	}
}
