package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// FCMService delivers reminder pushes through Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
}

func NewFCMService(ctx context.Context, app *firebase.App) (*FCMService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}

	log.Println("✅ FCM service initialized successfully")

	return &FCMService{client: client}, nil
}

// SendReminder delivers one fired reminder to a device.
func (s *FCMService) SendReminder(ctx context.Context, deviceToken, title, body string) error {
	if deviceToken == "" {
		return fmt.Errorf("device token is empty")
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":      "reminder_fired",
			"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:        "default",
				Priority:     messaging.PriorityHigh,
				ChannelID:    "caregpt_reminders",
				DefaultSound: true,
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending reminder push: %w", err)
	}

	log.Printf("📲 Reminder push delivered: %s", response)
	return nil
}

// ValidateToken checks whether a device token is still deliverable by
// sending a silent data-only message.
func (s *FCMService) ValidateToken(ctx context.Context, deviceToken string) bool {
	if deviceToken == "" {
		return false
	}

	message := &messaging.Message{
		Token: deviceToken,
		Data: map[string]string{
			"type": "token_validation",
		},
		Android: &messaging.AndroidConfig{
			Priority: "normal",
		},
	}

	if _, err := s.client.Send(ctx, message); err != nil {
		log.Printf("❌ ValidateToken failed: %v", err)
		return false
	}
	return true
}

// IsInvalidTokenError reports whether the FCM error means the token is
// dead and should be dropped from the store.
func IsInvalidTokenError(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsSenderIDMismatch(err)
}
