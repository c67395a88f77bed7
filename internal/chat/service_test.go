package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"caregpt-mind/internal/store"
)

type messageStore struct {
	store.Store
	saved [][2]string
}

func (s *messageStore) SaveMessage(_ context.Context, _, _, userMessage, botResponse string) (string, error) {
	s.saved = append(s.saved, [2]string{userMessage, botResponse})
	return "m1", nil
}

func TestSend_ReturnsReplyAndPersistsExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "Hello " + req.Message})
	}))
	defer server.Close()

	st := &messageStore{}
	service := NewService(server.URL, st)

	reply, err := service.Send(context.Background(), "user-1", "conv-1", "world")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "Hello world" {
		t.Errorf("unexpected reply %q", reply)
	}
	if len(st.saved) != 1 || st.saved[0] != [2]string{"world", "Hello world"} {
		t.Errorf("exchange not persisted: %v", st.saved)
	}
}

func TestSend_EndpointFailureWritesNoHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	st := &messageStore{}
	service := NewService(server.URL, st)

	if _, err := service.Send(context.Background(), "user-1", "conv-1", "hi"); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
	if len(st.saved) != 0 {
		t.Errorf("history written despite endpoint failure: %v", st.saved)
	}
}

func TestSend_EmptyMessageRejected(t *testing.T) {
	service := NewService("http://127.0.0.1:0", &messageStore{})
	if _, err := service.Send(context.Background(), "user-1", "conv-1", ""); err == nil {
		t.Fatal("expected error for empty message")
	}
}
