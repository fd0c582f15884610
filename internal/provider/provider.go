package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreamtumulus/andun/internal/model/chat"
)

// 可选的后端类型。
const (
	NameGemini     = "gemini"
	NameOpenRouter = "openrouter"
	NameArk        = "ark"
)

var (
	ErrMissingCredential = errors.New("provider credential is missing")
	ErrEmptyCompletion   = errors.New("backend returned an empty completion")
)

// Turn is one conversational exchange in backend vocabulary: role is either
// "user" or "assistant". System notices never reach this layer.
type Turn struct {
	Role string
	Text string
}

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// Options tune a single completion call.
type Options struct {
	Temperature float32
	// JSONMode requires the backend to return a single JSON object. Backends
	// without a native structured-output contract strengthen the system
	// instruction instead.
	JSONMode bool
}

// Backend normalizes the heterogeneous chat backends behind one call:
// given the turn history (last element is the new user turn) and system
// instructions, return the assistant text.
type Backend interface {
	Complete(ctx context.Context, turns []Turn, system string, opts Options) (string, error)
}

// BackendFunc adapts a plain function to the Backend interface.
type BackendFunc func(ctx context.Context, turns []Turn, system string, opts Options) (string, error)

func (f BackendFunc) Complete(ctx context.Context, turns []Turn, system string, opts Options) (string, error) {
	return f(ctx, turns, system, opts)
}

// Config selects and parameterizes a backend. Explicit APIKey/Model always
// override the provider defaults.
type Config struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// New constructs the configured backend variant.
func New(ctx context.Context, cfg Config) (Backend, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	switch cfg.Name {
	case NameGemini, "":
		return newGeminiBackend(ctx, cfg)
	case NameOpenRouter:
		return newOpenRouterBackend(cfg)
	case NameArk:
		return newArkBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// FromLog translates an internal message log plus the pending officer turn
// into backend vocabulary. Officer messages map to the user role, assistant
// messages stay assistant, and system notices are dropped.
func FromLog(log []chat.Message, newText string) []Turn {
	turns := make([]Turn, 0, len(log)+1)
	for _, m := range log {
		if !m.IsConversational() {
			continue
		}
		role := roleUser
		if m.Role == chat.RoleAssistant {
			role = roleAssistant
		}
		turns = append(turns, Turn{Role: role, Text: m.Text})
	}
	if newText != "" {
		turns = append(turns, Turn{Role: roleUser, Text: newText})
	}
	return turns
}

// PromptTurn wraps a single standalone prompt, used by the report synthesizer.
func PromptTurn(prompt string) []Turn {
	return []Turn{{Role: roleUser, Text: prompt}}
}
