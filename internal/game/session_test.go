package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pai-kids/internal/ai"
	"github.com/p-n-ai/pai-kids/internal/domain"
	"github.com/p-n-ai/pai-kids/internal/game"
	"github.com/p-n-ai/pai-kids/internal/progress"
)

type recordedEvent struct {
	playerID  string
	eventType string
	data      any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(playerID, eventType string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{playerID, eventType, data})
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

type failingSnapshots struct{}

func (failingSnapshots) Load(context.Context, string) (game.Snapshot, bool, error) {
	return game.Snapshot{}, false, errors.New("database down")
}

func (failingSnapshots) Save(context.Context, string, game.Snapshot) error {
	return errors.New("database down")
}

func newManager(snaps game.SnapshotStore, events game.EventLogger, pub game.Publisher) (*game.Manager, *ai.MockProvider) {
	provider := ai.NewMockProvider(sampleQuestion())
	return game.NewManager(game.ManagerConfig{
		Engine:        progress.NewEngine(progress.DefaultCatalog()),
		Provider:      provider,
		Snapshots:     snaps,
		Events:        events,
		Publisher:     pub,
		SpeechEnabled: true,
	}), provider
}

func playRound(t *testing.T, m *game.Manager, s *game.Session, option string) game.RoundView {
	t.Helper()
	v, err := s.Controller.Start(context.Background(), domain.SubjectMath)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m.Wait()
	got, err := s.Controller.Answer(v.ID, option)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	m.Wait()
	return got
}

func TestManager_SessionPerPlayer(t *testing.T) {
	m, _ := newManager(nil, nil, nil)
	ctx := context.Background()

	a, err := m.Session(ctx, "alice")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	again, _ := m.Session(ctx, "alice")
	b, _ := m.Session(ctx, "bob")

	if a != again {
		t.Error("Session() returned a different session for the same player")
	}
	if a == b {
		t.Error("players share a session")
	}
	if a.Store.Profile() != domain.ProfileJunior {
		t.Errorf("default profile = %s, want junior", a.Store.Profile())
	}
	if _, err := m.Session(ctx, ""); !errors.Is(err, game.ErrSessionNotFound) {
		t.Errorf("Session(\"\") error = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_SavesAndRestores(t *testing.T) {
	snaps := game.NewMemorySnapshotStore()
	m, _ := newManager(snaps, nil, nil)
	ctx := context.Background()

	s, _ := m.Session(ctx, "alice")
	s.Store.SelectProfile(domain.ProfileSenior)
	playRound(t, m, s, "3")

	saved, ok, err := snaps.Load(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if saved.State.Score != 10 || saved.Profile != domain.ProfileSenior {
		t.Errorf("saved snapshot = %+v", saved)
	}

	// A fresh manager over the same store picks the player back up.
	m2, _ := newManager(snaps, nil, nil)
	s2, err := m2.Session(ctx, "alice")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	got := s2.Store.Snapshot()
	if got.State.Score != 10 || got.Profile != domain.ProfileSenior {
		t.Errorf("restored snapshot = %+v", got)
	}
	if _, ok := s2.Store.PendingReward(); !ok {
		t.Error("pending reward lost on restore")
	}
}

func TestManager_LoadFailure(t *testing.T) {
	m, _ := newManager(failingSnapshots{}, nil, nil)
	if _, err := m.Session(context.Background(), "alice"); err == nil {
		t.Fatal("expected error when snapshots cannot be loaded")
	}
}

func TestManager_LogsEvents(t *testing.T) {
	events := game.NewMemoryEventLogger()
	m, _ := newManager(nil, events, nil)
	s, _ := m.Session(context.Background(), "alice")

	playRound(t, m, s, "3")

	var answered, unlocked int
	for _, e := range events.Events() {
		if e.PlayerID != "alice" {
			t.Errorf("event player = %q, want alice", e.PlayerID)
		}
		switch e.EventType {
		case game.EventAnswerRecorded:
			answered++
		case game.EventBadgeUnlocked:
			unlocked++
		}
	}
	if answered != 1 || unlocked != 1 {
		t.Errorf("answered, unlocked = %d, %d, want 1, 1", answered, unlocked)
	}
}

func TestManager_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	m, _ := newManager(nil, nil, pub)
	s, _ := m.Session(context.Background(), "alice")

	playRound(t, m, s, "3")

	for _, eventType := range []string{game.NotifyRound, game.NotifyState, game.NotifyReward, game.NotifySpeech} {
		if pub.count(eventType) == 0 {
			t.Errorf("no %s notification", eventType)
		}
	}
	if _, ok := s.LatestSpeech(); !ok {
		t.Error("LatestSpeech() empty after a junior round")
	}
}

func TestManager_SaveFailureKeepsPlaying(t *testing.T) {
	m, _ := newManager(saveOnlyFailing{game.NewMemorySnapshotStore()}, nil, nil)
	s, err := m.Session(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}

	got := playRound(t, m, s, "3")
	if got.Outcome == nil || got.Outcome.Score != 10 {
		t.Errorf("Outcome = %+v, want score 10", got.Outcome)
	}
}

type saveOnlyFailing struct {
	*game.MemorySnapshotStore
}

func (saveOnlyFailing) Save(context.Context, string, game.Snapshot) error {
	return errors.New("disk full")
}

// gatedSnapshots blocks the first Save until release is closed.
type gatedSnapshots struct {
	*game.MemorySnapshotStore

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedSnapshots() *gatedSnapshots {
	return &gatedSnapshots{
		MemorySnapshotStore: game.NewMemorySnapshotStore(),
		entered:             make(chan struct{}),
		release:             make(chan struct{}),
	}
}

func (g *gatedSnapshots) Save(ctx context.Context, playerID string, snap game.Snapshot) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemorySnapshotStore.Save(ctx, playerID, snap)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_SlowSaveDoesNotResurrectReward(t *testing.T) {
	snaps := newGatedSnapshots()
	m, _ := newManager(snaps, nil, nil)
	ctx := context.Background()
	s, err := m.Session(ctx, "alice")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Store.RecordAnswer(domain.SubjectMath, true)
	}()
	<-snaps.entered
	if _, pending := s.Store.PendingReward(); !pending {
		t.Fatal("PendingReward() = false, want the first_win badge")
	}

	go func() {
		defer wg.Done()
		s.Store.AcknowledgeReward()
	}()
	waitFor(t, "acknowledgment", func() bool {
		_, pending := s.Store.PendingReward()
		return !pending && len(s.Store.Snapshot().State.History) == 1
	})

	close(snaps.release)
	wg.Wait()

	saved, ok, err := snaps.Load(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if len(saved.Rewards) != 0 {
		t.Errorf("saved rewards = %v, want none after acknowledgment", badgeIDs(saved.Rewards))
	}
	if saved.State.Score != 10 {
		t.Errorf("saved score = %d, want 10", saved.State.Score)
	}
}

func TestController_CurrentDuringSlowSave(t *testing.T) {
	snaps := newGatedSnapshots()
	m, _ := newManager(snaps, nil, nil)
	s, _ := m.Session(context.Background(), "alice")

	v, err := s.Controller.Start(context.Background(), domain.SubjectMath)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m.Wait()

	answered := make(chan game.RoundView, 1)
	go func() {
		got, _ := s.Controller.Answer(v.ID, "3")
		answered <- got
	}()
	<-snaps.entered

	current := make(chan game.RoundView, 1)
	go func() {
		got, _ := s.Controller.Current()
		current <- got
	}()
	select {
	case got := <-current:
		if got.Phase != game.PhaseAnswered {
			t.Errorf("Phase = %s, want answered", got.Phase)
		}
	case <-time.After(time.Second):
		t.Error("Current() blocked behind the snapshot save")
	}

	// A repeat answer while the first is still being recorded does not
	// count twice.
	if _, err := s.Controller.Answer(v.ID, "2"); err != nil {
		t.Errorf("repeat Answer() error = %v", err)
	}

	close(snaps.release)
	got := <-answered
	m.Wait()
	if got.Outcome == nil || got.Outcome.Score != 10 {
		t.Errorf("Outcome = %+v, want score 10", got.Outcome)
	}
	if n := len(s.Store.Snapshot().State.History); n != 1 {
		t.Errorf("History length = %d, want 1", n)
	}
}

func TestManager_EvictIdle(t *testing.T) {
	snaps := game.NewMemorySnapshotStore()
	provider := ai.NewMockProvider(sampleQuestion())
	m := game.NewManager(game.ManagerConfig{
		Engine:    progress.NewEngine(progress.DefaultCatalog()),
		Provider:  provider,
		Snapshots: snaps,
		IdleTTL:   time.Minute,
	})
	ctx := context.Background()

	alice, _ := m.Session(ctx, "alice")
	playRound(t, m, alice, "3")
	if _, err := m.Session(ctx, "bob"); err != nil {
		t.Fatalf("Session() error = %v", err)
	}

	if n := m.EvictIdle(time.Now()); n != 0 {
		t.Errorf("EvictIdle(now) = %d, want 0", n)
	}
	if n := m.EvictIdle(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Errorf("EvictIdle(later) = %d, want 2", n)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}

	restored, err := m.Session(ctx, "alice")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if restored == alice {
		t.Error("evicted session returned from memory")
	}
	if got := restored.Store.Snapshot().State.Score; got != 10 {
		t.Errorf("restored score = %d, want 10", got)
	}
}

func TestManager_EvictIdleKeepsLoadingRound(t *testing.T) {
	provider := ai.NewMockProvider(sampleQuestion())
	m := game.NewManager(game.ManagerConfig{
		Engine:   progress.NewEngine(progress.DefaultCatalog()),
		Provider: provider,
		IdleTTL:  time.Minute,
	})
	s, _ := m.Session(context.Background(), "alice")

	release := provider.Hold()
	if _, err := s.Controller.Start(context.Background(), domain.SubjectLogic); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := m.EvictIdle(time.Now().Add(time.Hour)); n != 0 {
		t.Errorf("EvictIdle() = %d, want 0 while loading", n)
	}
	release()
	m.Wait()
}

func TestManager_EvictIdleDisabled(t *testing.T) {
	m, _ := newManager(nil, nil, nil)
	m.Session(context.Background(), "alice")

	if n := m.EvictIdle(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("EvictIdle() = %d, want 0 without a TTL", n)
	}
}

// loadCounting counts Load calls and blocks them until release is closed.
type loadCounting struct {
	*game.MemorySnapshotStore

	mu      sync.Mutex
	loads   int
	release chan struct{}
}

func (l *loadCounting) Load(ctx context.Context, playerID string) (game.Snapshot, bool, error) {
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()
	if playerID == "slow" {
		<-l.release
	}
	return l.MemorySnapshotStore.Load(ctx, playerID)
}

func TestManager_SlowLoadDoesNotBlockOthers(t *testing.T) {
	snaps := &loadCounting{MemorySnapshotStore: game.NewMemorySnapshotStore(), release: make(chan struct{})}
	m, _ := newManager(snaps, nil, nil)
	ctx := context.Background()

	done := make(chan *game.Session, 2)
	for range 2 {
		go func() {
			s, _ := m.Session(ctx, "slow")
			done <- s
		}()
	}
	waitFor(t, "slow loads", func() bool {
		snaps.mu.Lock()
		defer snaps.mu.Unlock()
		return snaps.loads == 2
	})

	fast := make(chan error, 1)
	go func() {
		_, err := m.Session(ctx, "fast")
		fast <- err
	}()
	select {
	case err := <-fast:
		if err != nil {
			t.Errorf("Session(fast) error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Session(fast) waited for another player's load")
	}

	close(snaps.release)
	a, b := <-done, <-done
	if a != b {
		t.Error("concurrent first requests created two sessions")
	}
}
