package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types written by the game.
const (
	EventAnswerRecorded = "answer_recorded"
	EventBadgeUnlocked  = "badge_unlocked"
)

// Event is a game analytics event persisted to the game_events table.
type Event struct {
	PlayerID  string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{events: []Event{}}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the game_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.PlayerID == "" {
		return fmt.Errorf("player_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO game_events (player_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.PlayerID, event.EventType, string(data), createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.EventType, "player_id", event.PlayerID)
	return nil
}

// logOutcome writes the events for one recorded answer.
func logOutcome(logger EventLogger, playerID string, o Outcome) {
	events := []Event{{
		PlayerID:  playerID,
		EventType: EventAnswerRecorded,
		Data: map[string]any{
			"subject": string(o.Subject),
			"correct": o.Correct,
			"score":   o.Score,
			"streak":  o.Streak,
		},
	}}
	for _, b := range o.NewBadges {
		events = append(events, Event{
			PlayerID:  playerID,
			EventType: EventBadgeUnlocked,
			Data:      map[string]any{"badge_id": b.ID, "category": string(b.Category)},
		})
	}
	for _, e := range events {
		if err := logger.LogEvent(e); err != nil {
			slog.Warn("failed to log event", "type", e.EventType, "player_id", playerID, "error", err)
		}
	}
}
