package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"caregpt-mind/internal/schedule"
)

// PostgresStore is the row-store backend for deployments that keep their
// own database instead of Firestore. Day sets are stored as comma-joined
// long names so the two backends stay field-compatible.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			fire_time TEXT NOT NULL,
			days TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			kind TEXT NOT NULL DEFAULT 'alarm',
			event_date TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_user ON schedules (user_id)`,
		`CREATE TABLE IF NOT EXISTS device_tokens (
			user_id TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListSchedules(ctx context.Context, userID string) ([]schedule.Alarm, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, fire_time, days, is_active, kind, event_date, created_at
		FROM schedules
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var alarms []schedule.Alarm
	for rows.Next() {
		alarm, err := scanAlarm(rows, userID)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, alarm)
	}
	return alarms, rows.Err()
}

func (s *PostgresStore) GetSchedule(ctx context.Context, userID, id string) (*schedule.Alarm, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, fire_time, days, is_active, kind, event_date, created_at
		FROM schedules
		WHERE user_id = $1 AND id = $2
	`, userID, id)

	alarm, err := scanAlarm(row, userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alarm, nil
}

func (s *PostgresStore) SaveSchedule(ctx context.Context, userID string, alarm schedule.Alarm) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, user_id, title, fire_time, days, is_active, kind, event_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, userID, alarm.Title, alarm.Time.String(),
		strings.Join(schedule.WeekdayNames(alarm.Days), ","),
		alarm.IsActive, string(alarm.Kind), alarm.Date)
	if err != nil {
		return "", fmt.Errorf("failed to insert schedule: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateSchedule(ctx context.Context, userID, id string, fields map[string]interface{}) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	assignments, args, err := scheduleUpdateColumns(fields)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}

	args = append(args, userID, id)
	query := fmt.Sprintf(`UPDATE schedules SET %s WHERE user_id = $%d AND id = $%d`,
		strings.Join(assignments, ", "), len(args)-1, len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSchedule(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeviceToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM device_tokens WHERE user_id = $1`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query device token: %w", err)
	}
	return token, nil
}

func (s *PostgresStore) SetDeviceToken(ctx context.Context, userID, token string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_tokens (user_id, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET token = $2, updated_at = NOW()
	`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to set device token: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateConversation(ctx context.Context, userID, title string) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title) VALUES ($1, $2, $3)
	`, id, userID, title)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at FROM conversations WHERE user_id = $1 ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (s *PostgresStore) DeleteConversation(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Messages(ctx context.Context, userID, conversationID string) ([]Message, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_message, bot_response, created_at
		FROM messages
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC
	`, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserMessage, &m.BotResponse, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) SaveMessage(ctx context.Context, userID, conversationID, userMessage, botResponse string) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, user_id, user_message, bot_response)
		VALUES ($1, $2, $3, $4, $5)
	`, id, conversationID, userID, userMessage, botResponse)
	if err != nil {
		return "", fmt.Errorf("failed to save message: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlarm(row rowScanner, userID string) (schedule.Alarm, error) {
	var (
		alarm    schedule.Alarm
		fireTime string
		days     string
		kind     string
	)
	err := row.Scan(&alarm.ID, &alarm.Title, &fireTime, &days, &alarm.IsActive, &kind, &alarm.Date, &alarm.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return schedule.Alarm{}, err
		}
		return schedule.Alarm{}, fmt.Errorf("failed to scan schedule: %w", err)
	}

	alarm.UserID = userID
	alarm.Kind = schedule.Kind(kind)
	if alarm.Time, err = schedule.ParseTimeOfDay(fireTime); err != nil {
		return schedule.Alarm{}, err
	}
	if days != "" {
		if alarm.Days, err = schedule.ParseWeekdays(strings.Split(days, ",")); err != nil {
			return schedule.Alarm{}, err
		}
	}
	return alarm, nil
}

// scheduleUpdateColumns maps the document field names shared with the
// Firestore backend onto SQL assignments.
func scheduleUpdateColumns(fields map[string]interface{}) ([]string, []interface{}, error) {
	columns := map[string]string{
		"title":    "title",
		"time":     "fire_time",
		"days":     "days",
		"isActive": "is_active",
		"type":     "kind",
		"date":     "event_date",
	}

	var assignments []string
	var args []interface{}
	for field, value := range fields {
		column, ok := columns[field]
		if !ok {
			return nil, nil, fmt.Errorf("unknown schedule field %q", field)
		}
		if field == "days" {
			names, err := dayNames(value)
			if err != nil {
				return nil, nil, err
			}
			value = strings.Join(names, ",")
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	return assignments, args, nil
}

func dayNames(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("day name is not a string: %v", item)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("days value has unsupported type %T", value)
	}
}
