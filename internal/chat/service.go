package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"caregpt-mind/internal/store"
)

// Service proxies chat messages to the remote inference endpoint and keeps
// the per-conversation history in the store.
type Service struct {
	endpoint string
	client   *http.Client
	store    store.Store
}

func NewService(endpoint string, st store.Store) *Service {
	return &Service{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		store:    st,
	}
}

type inferenceRequest struct {
	Message string `json:"message"`
}

type inferenceResponse struct {
	Response string `json:"response"`
}

// Send forwards the user's message and returns the assistant's reply. The
// exchange is persisted into the conversation only after the endpoint
// answered; a dead endpoint writes no history.
func (s *Service) Send(ctx context.Context, userID, conversationID, message string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("message must not be empty")
	}

	body, err := json.Marshal(inferenceRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference endpoint returned status %d", resp.StatusCode)
	}

	var reply inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if conversationID != "" {
		if _, err := s.store.SaveMessage(ctx, userID, conversationID, message, reply.Response); err != nil {
			log.Printf("⚠️  Chat reply delivered but history not saved: %v", err)
		}
	}

	return reply.Response, nil
}
