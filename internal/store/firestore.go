package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"caregpt-mind/internal/schedule"
)

// FirestoreStore keeps schedules and conversations in the same document
// layout the mobile app uses: users/{uid}/schedules and
// users/{uid}/conversations, with messages as a subcollection.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, app *firebase.App) (*FirestoreStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) schedules(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("schedules")
}

func (s *FirestoreStore) conversations(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("conversations")
}

func (s *FirestoreStore) ListSchedules(ctx context.Context, userID string) ([]schedule.Alarm, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	var alarms []schedule.Alarm
	iter := s.schedules(userID).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate schedules: %w", err)
		}
		alarm, err := alarmFromDoc(userID, doc.Ref.ID, doc.Data())
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", doc.Ref.ID, err)
		}
		alarms = append(alarms, alarm)
	}
	return alarms, nil
}

func (s *FirestoreStore) GetSchedule(ctx context.Context, userID, id string) (*schedule.Alarm, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	doc, err := s.schedules(userID).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	alarm, err := alarmFromDoc(userID, doc.Ref.ID, doc.Data())
	if err != nil {
		return nil, err
	}
	return &alarm, nil
}

func (s *FirestoreStore) SaveSchedule(ctx context.Context, userID string, alarm schedule.Alarm) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	ref, _, err := s.schedules(userID).Add(ctx, docFromAlarm(alarm))
	if err != nil {
		return "", fmt.Errorf("failed to save schedule: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) UpdateSchedule(ctx context.Context, userID, id string, fields map[string]interface{}) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	_, err := s.schedules(userID).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeleteSchedule(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	// Firestore deletes are no-ops for missing documents, matching the
	// cancel-is-safe semantics callers rely on.
	if _, err := s.schedules(userID).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeviceToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	doc, err := s.client.Collection("users").Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user doc: %w", err)
	}
	token, _ := doc.Data()["deviceToken"].(string)
	return token, nil
}

func (s *FirestoreStore) SetDeviceToken(ctx context.Context, userID, token string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	_, err := s.client.Collection("users").Doc(userID).Set(ctx, map[string]interface{}{
		"deviceToken": token,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to set device token: %w", err)
	}
	return nil
}

func (s *FirestoreStore) CreateConversation(ctx context.Context, userID, title string) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	ref, _, err := s.conversations(userID).Add(ctx, map[string]interface{}{
		"title":     title,
		"createdAt": time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	var conversations []Conversation
	iter := s.conversations(userID).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate conversations: %w", err)
		}
		data := doc.Data()
		title, _ := data["title"].(string)
		conversations = append(conversations, Conversation{
			ID:        doc.Ref.ID,
			Title:     title,
			CreatedAt: timestampField(data, "createdAt"),
		})
	}
	return conversations, nil
}

func (s *FirestoreStore) DeleteConversation(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	if _, err := s.conversations(userID).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Messages(ctx context.Context, userID, conversationID string) ([]Message, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	var messages []Message
	iter := s.conversations(userID).Doc(conversationID).
		Collection("messages").OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate messages: %w", err)
		}
		data := doc.Data()
		userMessage, _ := data["userMessage"].(string)
		botResponse, _ := data["botResponse"].(string)
		messages = append(messages, Message{
			ID:          doc.Ref.ID,
			UserMessage: userMessage,
			BotResponse: botResponse,
			CreatedAt:   timestampField(data, "createdAt"),
		})
	}
	return messages, nil
}

func (s *FirestoreStore) SaveMessage(ctx context.Context, userID, conversationID, userMessage, botResponse string) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	ref, _, err := s.conversations(userID).Doc(conversationID).Collection("messages").Add(ctx, map[string]interface{}{
		"userMessage": userMessage,
		"botResponse": botResponse,
		"createdAt":   time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save message: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	// One cheap read proves the connection and credentials still work.
	iter := s.client.Collections(ctx)
	_, err := iter.Next()
	if err == iterator.Done || err == nil {
		return nil
	}
	return err
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// alarmFromDoc decodes the mobile app's schedule document shape. Days are
// stored as long English names; time as "HH:MM:SS".
func alarmFromDoc(userID, id string, data map[string]interface{}) (schedule.Alarm, error) {
	alarm := schedule.Alarm{
		ID:     id,
		UserID: userID,
		Kind:   schedule.KindAlarm,
	}

	alarm.Title, _ = data["title"].(string)
	if kind, ok := data["type"].(string); ok && kind != "" {
		alarm.Kind = schedule.Kind(kind)
	}
	alarm.IsActive, _ = data["isActive"].(bool)
	alarm.Date, _ = data["date"].(string)
	alarm.CreatedAt = timestampField(data, "createdAt")

	if raw, ok := data["time"].(string); ok && raw != "" {
		tod, err := schedule.ParseTimeOfDay(raw)
		if err != nil {
			return schedule.Alarm{}, err
		}
		alarm.Time = tod
	}

	if rawDays, ok := data["days"].([]interface{}); ok {
		names := make([]string, 0, len(rawDays))
		for _, d := range rawDays {
			if name, ok := d.(string); ok {
				names = append(names, name)
			}
		}
		days, err := schedule.ParseWeekdays(names)
		if err != nil {
			return schedule.Alarm{}, err
		}
		alarm.Days = days
	}

	return alarm, nil
}

func docFromAlarm(alarm schedule.Alarm) map[string]interface{} {
	doc := map[string]interface{}{
		"title":     alarm.Title,
		"time":      alarm.Time.String(),
		"isActive":  alarm.IsActive,
		"type":      string(alarm.Kind),
		"createdAt": time.Now().UTC(),
	}
	if len(alarm.Days) > 0 {
		doc["days"] = schedule.WeekdayNames(alarm.Days)
	}
	if alarm.Date != "" {
		doc["date"] = alarm.Date
	}
	return doc
}

// timestampField tolerates both Firestore timestamps and the ISO strings
// the original app wrote.
func timestampField(data map[string]interface{}, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts
		}
	}
	return time.Time{}
}
