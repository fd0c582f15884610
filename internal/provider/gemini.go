package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiBackend adapts the native multi-turn chat-session API: the system
// instruction and prior history are supplied at session creation and only the
// new turn is submitted.
type geminiBackend struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func newGeminiBackend(ctx context.Context, cfg Config) (*geminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &geminiBackend{client: client, model: model, timeout: cfg.Timeout}, nil
}

func (b *geminiBackend) Complete(ctx context.Context, turns []Turn, system string, opts Options) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("gemini: no turns to send")
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.JSONMode {
		genCfg.ResponseMIMEType = "application/json"
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, t := range turns[:len(turns)-1] {
		var role genai.Role = genai.RoleUser
		if t.Role == roleAssistant {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(t.Text, role))
	}

	session, err := b.client.Chats.Create(ctx, b.model, genCfg, history)
	if err != nil {
		return "", fmt.Errorf("create gemini chat session: %w", err)
	}

	resp, err := session.SendMessage(ctx, genai.Part{Text: turns[len(turns)-1].Text})
	if err != nil {
		return "", fmt.Errorf("gemini send message: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
