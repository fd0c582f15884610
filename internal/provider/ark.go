package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	defaultArkRegion  = "cn-beijing"
)

// arkBackend adapts a 火山方舟 chat model through the eino framework. Like
// the REST variant it is stateless: history is resent on every call. Ark has
// no structured-output flag, so JSON mode relies on the system directive.
type arkBackend struct {
	chatModel model.ChatModel
	timeout   time.Duration
}

func newArkBackend(ctx context.Context, cfg Config) (*arkBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark: %w", ErrMissingCredential)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ark: model id is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultArkBaseURL
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: baseURL,
		Region:  defaultArkRegion,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create ark chat model: %w", err)
	}

	return &arkBackend{chatModel: chatModel, timeout: cfg.Timeout}, nil
}

func (b *arkBackend) Complete(ctx context.Context, turns []Turn, system string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if opts.JSONMode {
		system = strings.TrimSpace(system + "\n\n" + strictJSONDirective)
	}

	messages := make([]*schema.Message, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, schema.SystemMessage(system))
	}
	for _, t := range turns {
		if t.Role == roleAssistant {
			messages = append(messages, schema.AssistantMessage(t.Text, nil))
		} else {
			messages = append(messages, schema.UserMessage(t.Text))
		}
	}

	resp, err := b.chatModel.Generate(ctx, messages, model.WithTemperature(opts.Temperature))
	if err != nil {
		return "", fmt.Errorf("ark generate: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
