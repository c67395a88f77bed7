package store

import (
	"context"
	"errors"
	"time"

	"caregpt-mind/internal/schedule"
)

// ErrNotAuthenticated is returned when an operation is attempted without a
// signed-in user.
var ErrNotAuthenticated = errors.New("no authenticated user")

// ErrNotFound is returned for operations against a missing record.
var ErrNotFound = errors.New("record not found")

// Conversation is one chat thread's metadata.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one user/bot exchange inside a conversation.
type Message struct {
	ID          string    `json:"id"`
	UserMessage string    `json:"userMessage"`
	BotResponse string    `json:"botResponse"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store owns every durable record: schedules, device tokens, and chat
// history, all partitioned per user. The scheduling core never writes
// through it directly; handlers persist first and then synchronize.
type Store interface {
	ListSchedules(ctx context.Context, userID string) ([]schedule.Alarm, error)
	GetSchedule(ctx context.Context, userID, id string) (*schedule.Alarm, error)
	SaveSchedule(ctx context.Context, userID string, alarm schedule.Alarm) (string, error)
	// UpdateSchedule applies a partial update; fields use the stored
	// document field names (title, time, days, isActive, type, date).
	UpdateSchedule(ctx context.Context, userID, id string, fields map[string]interface{}) error
	DeleteSchedule(ctx context.Context, userID, id string) error

	DeviceToken(ctx context.Context, userID string) (string, error)
	SetDeviceToken(ctx context.Context, userID, token string) error

	CreateConversation(ctx context.Context, userID, title string) (string, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	DeleteConversation(ctx context.Context, userID, id string) error
	Messages(ctx context.Context, userID, conversationID string) ([]Message, error)
	SaveMessage(ctx context.Context, userID, conversationID, userMessage, botResponse string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}
