// Package game owns a player's game: the state store that scores answers and
// queues rewards, the round controller that drives one question at a time,
// and the manager that keeps one session per player.
package game

import (
	"sync"

	"github.com/p-n-ai/pai-kids/internal/domain"
	"github.com/p-n-ai/pai-kids/internal/progress"
)

// PointsPerCorrect is added to the score for every correct answer.
const PointsPerCorrect = 10

// State is a player's cumulative game record.
type State struct {
	Score    int             `json:"score"`
	Streak   int             `json:"streak"`
	History  []domain.Answer `json:"history"`
	Unlocked []string        `json:"unlocked"`
}

func (s State) clone() State {
	s.History = append([]domain.Answer(nil), s.History...)
	s.Unlocked = append([]string(nil), s.Unlocked...)
	return s
}

// CorrectCount returns the number of correct answers, optionally limited to
// one subject. An empty subject counts all.
func (s State) CorrectCount(subject domain.Subject) int {
	n := 0
	for _, a := range s.History {
		if a.Correct && (subject == "" || a.Subject == subject) {
			n++
		}
	}
	return n
}

// Snapshot is a point-in-time copy of everything a Store owns.
type Snapshot struct {
	Profile domain.Profile `json:"profile"`
	Subject domain.Subject `json:"subject,omitempty"`
	State   State          `json:"state"`
	Rewards []domain.Badge `json:"rewards"`
}

// Outcome describes the effect of one recorded answer.
type Outcome struct {
	Subject   domain.Subject `json:"subject"`
	Correct   bool           `json:"correct"`
	Score     int            `json:"score"`
	Streak    int            `json:"streak"`
	NewBadges []domain.Badge `json:"new_badges"`
}

// Change is delivered to observers after every mutation. Outcome is set
// when the change came from RecordAnswer. Version increases with every
// mutation of the store, so an observer running late can tell that a newer
// change has already been seen.
type Change struct {
	Version  uint64
	Snapshot Snapshot
	Outcome  *Outcome
}

// Store is the single owner of a player's profile, subject, game state and
// reward queue. Every method is atomic.
type Store struct {
	mu        sync.Mutex
	engine    *progress.Engine
	profile   domain.Profile
	subject   domain.Subject
	state     State
	rewards   []domain.Badge
	version   uint64
	observers []func(Change)
}

// NewStore creates an empty store for the given profile.
func NewStore(engine *progress.Engine, profile domain.Profile) *Store {
	return &Store{
		engine:  engine,
		profile: profile,
		state:   State{History: []domain.Answer{}, Unlocked: []string{}},
	}
}

// OnChange registers fn to be called after each mutation, outside the lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// RecordAnswer scores an answer, evaluates badges against the updated state
// and queues any newly unlocked badges in catalog order.
func (s *Store) RecordAnswer(subject domain.Subject, correct bool) Outcome {
	s.mu.Lock()

	if correct {
		s.state.Score += PointsPerCorrect
		s.state.Streak++
	} else {
		s.state.Streak = 0
	}
	s.state.History = append(s.state.History, domain.Answer{Correct: correct, Subject: subject})

	newIDs := s.engine.Evaluate(progress.Input{
		History:  s.state.History,
		Streak:   s.state.Streak,
		Unlocked: s.state.Unlocked,
	}, subject)

	outcome := Outcome{
		Subject:   subject,
		Correct:   correct,
		Score:     s.state.Score,
		Streak:    s.state.Streak,
		NewBadges: []domain.Badge{},
	}
	catalog := s.engine.Catalog()
	for _, id := range newIDs {
		s.state.Unlocked = append(s.state.Unlocked, id)
		if b, ok := catalog.Badge(id); ok {
			s.rewards = append(s.rewards, b)
			outcome.NewBadges = append(outcome.NewBadges, b)
		}
	}

	change := s.changeLocked(&outcome)
	observers := s.observers
	s.mu.Unlock()

	notify(observers, change)
	return outcome
}

// PendingReward returns the reward currently awaiting acknowledgment.
func (s *Store) PendingReward() (domain.Badge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rewards) == 0 {
		return domain.Badge{}, false
	}
	return s.rewards[0], true
}

// AcknowledgeReward removes and returns the head of the reward queue.
func (s *Store) AcknowledgeReward() (domain.Badge, bool) {
	s.mu.Lock()
	if len(s.rewards) == 0 {
		s.mu.Unlock()
		return domain.Badge{}, false
	}
	head := s.rewards[0]
	s.rewards = append([]domain.Badge(nil), s.rewards[1:]...)
	change := s.changeLocked(nil)
	observers := s.observers
	s.mu.Unlock()

	notify(observers, change)
	return head, true
}

// Profile returns the active profile.
func (s *Store) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SelectProfile switches the age tier. Game state is kept.
func (s *Store) SelectProfile(p domain.Profile) {
	s.mu.Lock()
	if s.profile == p {
		s.mu.Unlock()
		return
	}
	s.profile = p
	change := s.changeLocked(nil)
	observers := s.observers
	s.mu.Unlock()

	notify(observers, change)
}

// SelectSubject makes subject the active game.
func (s *Store) SelectSubject(subject domain.Subject) error {
	if !subject.Valid() {
		return ErrUnknownSubject
	}
	s.mu.Lock()
	s.subject = subject
	s.mu.Unlock()
	return nil
}

// ClearSubject returns to subject selection.
func (s *Store) ClearSubject() {
	s.mu.Lock()
	s.subject = ""
	s.mu.Unlock()
}

// ActiveSubject returns the subject being played, if any.
func (s *Store) ActiveSubject() (domain.Subject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subject, s.subject != ""
}

// Snapshot returns a copy of the store's contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Restore replaces the store's contents with a saved snapshot. The active
// subject is not restored; a restored player starts at subject selection.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Profile != "" {
		s.profile = snap.Profile
	}
	s.subject = ""
	s.state = snap.State.clone()
	if s.state.History == nil {
		s.state.History = []domain.Answer{}
	}
	if s.state.Unlocked == nil {
		s.state.Unlocked = []string{}
	}
	s.rewards = append([]domain.Badge(nil), snap.Rewards...)
}

func (s *Store) changeLocked(outcome *Outcome) Change {
	s.version++
	return Change{Version: s.version, Snapshot: s.snapshotLocked(), Outcome: outcome}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Profile: s.profile,
		Subject: s.subject,
		State:   s.state.clone(),
		Rewards: append([]domain.Badge{}, s.rewards...),
	}
}

func notify(observers []func(Change), c Change) {
	for _, fn := range observers {
		fn(c)
	}
}
