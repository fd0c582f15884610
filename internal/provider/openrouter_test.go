package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *openRouterBackend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	b, err := newOpenRouterBackend(Config{
		Name:    NameOpenRouter,
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("newOpenRouterBackend err: %v", err)
	}
	return b
}

func TestOpenRouterComplete(t *testing.T) {
	var captured openRouterRequest
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "辛苦了，说说看。"}},
			},
		})
	})

	turns := []Turn{
		{Role: roleUser, Text: "最近很累"},
	}
	reply, err := b.Complete(context.Background(), turns, "你是评估助手", Options{Temperature: 0.5})
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if reply != "辛苦了，说说看。" {
		t.Fatalf("unexpected reply: %s", reply)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[1].Role != roleUser {
		t.Fatalf("unexpected roles: %+v", captured.Messages)
	}
	if captured.ResponseFormat != nil {
		t.Fatal("response_format set outside JSON mode")
	}
}

func TestOpenRouterJSONMode(t *testing.T) {
	var captured openRouterRequest
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"ok":true}`}},
			},
		})
	})

	_, err := b.Complete(context.Background(), PromptTurn("extract"), "system", Options{JSONMode: true})
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("json mode not requested: %+v", captured.ResponseFormat)
	}
	if len(captured.Messages) == 0 || captured.Messages[0].Role != "system" {
		t.Fatal("system message missing")
	}
	if got := captured.Messages[0].Content; !strings.Contains(got, strictJSONDirective) {
		t.Fatalf("strict json directive not appended: %s", got)
	}
}

func TestOpenRouterUpstreamError(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	})

	if _, err := b.Complete(context.Background(), PromptTurn("hi"), "", Options{}); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestOpenRouterEmptyCompletion(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := b.Complete(context.Background(), PromptTurn("hi"), "", Options{})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}
