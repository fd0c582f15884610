package dialogue

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/dreamtumulus/andun/internal/model/chat"
	"github.com/dreamtumulus/andun/internal/provider"
)

var ErrEmptyMessage = errors.New("message text is empty")

// Pipeline drives one conversational agent. Send is pure request/response:
// it never mutates the input log, and callers are responsible for appending
// both the officer turn and the assistant turn to persisted state.
type Pipeline struct {
	backend provider.Backend
	agent   Agent
}

// NewPipeline binds an agent configuration to a model backend.
func NewPipeline(backend provider.Backend, agent Agent) *Pipeline {
	return &Pipeline{backend: backend, agent: agent}
}

// Agent returns the pipeline's agent configuration.
func (p *Pipeline) Agent() Agent {
	return p.agent
}

// Fallback returns the fixed utterance substituted on backend failure.
func (p *Pipeline) Fallback() string {
	return p.agent.fallback()
}

// Send forwards the conversation to the backend and returns the assistant
// text. Backend failures degrade to the fallback utterance so the
// conversation never visibly crashes; the failure is logged for operators.
func (p *Pipeline) Send(ctx context.Context, msgLog []chat.Message, newText, memoryContext string) (string, error) {
	text := strings.TrimSpace(newText)
	if text == "" {
		return "", ErrEmptyMessage
	}

	turns := provider.FromLog(msgLog, text)
	system := p.agent.systemInstruction(memoryContext)

	reply, err := p.backend.Complete(ctx, turns, system, provider.Options{
		Temperature: p.agent.Temperature,
	})
	if err != nil {
		log.Printf("[dialogue] %s agent backend error, using fallback: %v", p.agent.Kind, err)
		return p.agent.fallback(), nil
	}
	return reply, nil
}
