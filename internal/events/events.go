// Package events publishes domain events for completed ranked games.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	SourceService = "rankedle"

	TypeGameCompleted = "game.completed"
)

// GameCompleted is emitted once per scored daily game.
type GameCompleted struct {
	PlayerID     string    `json:"playerId"`
	Day          string    `json:"day"`
	Won          bool      `json:"won"`
	Attempts     int       `json:"attempts"`
	RatingBefore int       `json:"ratingBefore"`
	RatingAfter  int       `json:"ratingAfter"`
	RatingChange int       `json:"ratingChange"`
	PointsEarned int       `json:"pointsEarned"`
	Tier         string    `json:"tier"`
	InPlacement  bool      `json:"isInPlacementPhase"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Envelope wraps every payload put on the wire.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope serializes payload under a fresh event ID.
func NewEnvelope(eventType string, payload any, at time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Timestamp:     at.UTC(),
		SourceService: SourceService,
		Payload:       data,
	}, nil
}

func marshalEnvelope(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, nil
}

// Publisher delivers game events. Publish failures never undo a game.
type Publisher interface {
	PublishGameCompleted(ctx context.Context, ev GameCompleted) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) PublishGameCompleted(context.Context, GameCompleted) error { return nil }
func (Noop) Close() error                                              { return nil }

// Recorder keeps published events in memory; used by tests and the play command.
type Recorder struct {
	mu     sync.Mutex
	events []GameCompleted
}

func (r *Recorder) PublishGameCompleted(_ context.Context, ev GameCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []GameCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GameCompleted(nil), r.events...)
}
