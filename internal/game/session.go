package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-kids/internal/ai"
	"github.com/p-n-ai/pai-kids/internal/domain"
	"github.com/p-n-ai/pai-kids/internal/progress"
)

// Notification event types.
const (
	NotifyRound  = "round"
	NotifyReward = "reward"
	NotifySpeech = "speech"
	NotifyState  = "state"
)

// Publisher delivers notifications to a player's connected clients.
type Publisher interface {
	Publish(playerID, eventType string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

// ManagerConfig wires a Manager. Only Engine and Provider are required.
type ManagerConfig struct {
	Engine         *progress.Engine
	Provider       ai.ContentProvider
	Snapshots      SnapshotStore
	Events         EventLogger
	Publisher      Publisher
	DefaultProfile domain.Profile
	RoundTimeout   time.Duration
	SpeechEnabled  bool
	// IdleTTL is how long an idle session stays in memory. Zero keeps
	// sessions until the process exits.
	IdleTTL time.Duration
}

// Session is one player's game.
type Session struct {
	PlayerID   string
	Store      *Store
	Controller *Controller
	Narrator   *Narrator

	mu       sync.Mutex
	speech   *Speech
	lastSeen time.Time

	// saveMu orders snapshot saves; saved is the newest version written.
	saveMu sync.Mutex
	saved  uint64
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// LatestSpeech returns the most recently synthesized utterance.
func (s *Session) LatestSpeech() (Speech, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speech == nil {
		return Speech{}, false
	}
	return *s.speech, true
}

// Manager keeps one Session per player, restoring saved state on first use
// and saving it after every change.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Snapshots == nil {
		cfg.Snapshots = NewMemorySnapshotStore()
	}
	if cfg.Events == nil {
		cfg.Events = NopEventLogger{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nopPublisher{}
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = domain.ProfileJunior
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Catalog returns the badge catalog used for every session.
func (m *Manager) Catalog() *progress.Catalog {
	return m.cfg.Engine.Catalog()
}

// Session returns the session for playerID, creating it if needed. Saved
// state is loaded without holding the manager lock; if two requests race to
// create the same session the first one stored wins.
func (m *Manager) Session(ctx context.Context, playerID string) (*Session, error) {
	if playerID == "" {
		return nil, ErrSessionNotFound
	}
	now := time.Now()

	m.mu.Lock()
	s, ok := m.sessions[playerID]
	m.mu.Unlock()
	if ok {
		s.touch(now)
		return s, nil
	}

	snap, found, err := m.cfg.Snapshots.Load(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", playerID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[playerID]; ok {
		existing.touch(now)
		return existing, nil
	}

	s = m.newSession(playerID)
	if found {
		s.Store.Restore(snap)
		slog.Info("session restored", "player_id", playerID, "score", snap.State.Score)
	}
	s.Store.OnChange(func(c Change) { m.onChange(s, c) })
	s.touch(now)

	m.sessions[playerID] = s
	return s, nil
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops sessions not used since now minus IdleTTL. Sessions with a
// round still loading are kept. State is saved on every change, so an
// evicted player is restored on their next request.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince().After(cutoff) || s.Controller.Busy() {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	if evicted > 0 {
		slog.Debug("idle sessions evicted", "count", evicted, "remaining", len(m.sessions))
	}
	return evicted
}

// Run evicts idle sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.IdleTTL <= 0 {
		return
	}
	interval := m.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.EvictIdle(now)
		}
	}
}

// Wait blocks until every session's background work has finished.
func (m *Manager) Wait() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Controller.Wait()
		s.Narrator.Wait()
	}
}

func (m *Manager) newSession(playerID string) *Session {
	s := &Session{PlayerID: playerID}
	s.Store = NewStore(m.cfg.Engine, m.cfg.DefaultProfile)
	s.Narrator = NewNarrator(m.cfg.Provider, m.cfg.SpeechEnabled, func(sp Speech) {
		s.mu.Lock()
		s.speech = &sp
		s.mu.Unlock()
		m.cfg.Publisher.Publish(playerID, NotifySpeech, map[string]any{
			"round_id":  sp.RoundID,
			"text":      sp.Text,
			"mime_type": sp.Audio.MIMEType,
		})
	})
	s.Controller = NewController(s.Store, m.cfg.Provider, s.Narrator,
		WithRoundTimeout(m.cfg.RoundTimeout),
		WithRoundListener(func(v RoundView) {
			m.cfg.Publisher.Publish(playerID, NotifyRound, v)
		}),
	)
	return s
}

func (m *Manager) onChange(s *Session, c Change) {
	playerID := s.PlayerID

	// Observers run after the store lock is released, so changes can arrive
	// here out of order. Anything older than the last save is dropped.
	s.saveMu.Lock()
	if c.Version > s.saved {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		if err := m.cfg.Snapshots.Save(ctx, playerID, c.Snapshot); err != nil {
			slog.Error("failed to save session", "player_id", playerID, "error", err)
		}
		cancel()
		s.saved = c.Version
		m.cfg.Publisher.Publish(playerID, NotifyState, c.Snapshot)
	} else {
		slog.Debug("skipping superseded snapshot", "player_id", playerID, "version", c.Version)
	}
	s.saveMu.Unlock()

	if c.Outcome == nil {
		return
	}
	logOutcome(m.cfg.Events, playerID, *c.Outcome)
	if len(c.Outcome.NewBadges) > 0 && len(c.Snapshot.Rewards) > 0 {
		m.cfg.Publisher.Publish(playerID, NotifyReward, c.Snapshot.Rewards[0])
	}
}
