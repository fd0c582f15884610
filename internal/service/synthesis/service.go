package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dreamtumulus/andun/internal/model/chat"
	"github.com/dreamtumulus/andun/internal/model/report"
	"github.com/dreamtumulus/andun/internal/provider"
)

var (
	ErrGenerationFailed = errors.New("report generation failed")
	ErrNotEnoughTurns   = errors.New("not enough conversation to synthesize")
)

// refineWindow 限定增量更新只回看最近的咨询对话，保持提示词聚焦于变化。
const refineWindow = 6

const extractionTemperature = 0.3

// Service converts conversation logs into the structured report object.
// Both operations replace the report wholesale; on parse failure they return
// an error and callers must keep the prior report unchanged.
type Service struct {
	backend provider.Backend
}

// NewService binds the synthesizer to a model backend.
func NewService(backend provider.Backend) *Service {
	return &Service{backend: backend}
}

// Generate builds the extraction prompt from the full filtered assessment log
// and parses the result. When prior is present this is a refresh: the model
// is told to compare against the previous risk level.
func (s *Service) Generate(ctx context.Context, msgLog []chat.Message, prior *report.Report) (*report.Report, error) {
	conversation := formatConversation(msgLog, "评估助手")
	if conversation == "" {
		return nil, ErrNotEnoughTurns
	}

	var refreshDirective string
	if prior != nil {
		priorJSON, _ := json.Marshal(prior)
		refreshDirective = fmt.Sprintf(refreshDirectiveTemplate, string(priorJSON))
	}

	prompt := fmt.Sprintf(generatePrompt, conversation, refreshDirective)
	return s.synthesize(ctx, prompt)
}

// Refine performs the narrower incremental pass: only the most recent
// counseling turns plus the prior report, producing a full replacement
// object. Fields without detected change are carried forward by the model;
// the returned object is trusted wholesale.
func (s *Service) Refine(ctx context.Context, prior *report.Report, counselingLog []chat.Message) (*report.Report, error) {
	if prior == nil {
		return nil, fmt.Errorf("%w: no prior report to refine", ErrGenerationFailed)
	}

	recent := recentConversational(counselingLog, refineWindow)
	conversation := formatConversation(recent, "疏导专家")
	if conversation == "" {
		return nil, ErrNotEnoughTurns
	}

	priorJSON, err := json.Marshal(prior)
	if err != nil {
		return nil, fmt.Errorf("encode prior report: %w", err)
	}

	prompt := fmt.Sprintf(refinePrompt, string(priorJSON), conversation)
	return s.synthesize(ctx, prompt)
}

func (s *Service) synthesize(ctx context.Context, prompt string) (*report.Report, error) {
	text, err := s.backend.Complete(ctx, provider.PromptTurn(prompt), synthesisSystem, provider.Options{
		Temperature: extractionTemperature,
		JSONMode:    true,
	})
	if err != nil {
		log.Printf("[synthesis] backend error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	rep, err := ParseReport(text)
	if err != nil {
		log.Printf("[synthesis] parse error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	// The timestamp is authoritative here, whatever the model returned.
	rep.LastUpdated = time.Now().UTC()
	return rep, nil
}

// ParseReport extracts the JSON object from a model reply that may be wrapped
// in markdown fencing or explanatory prose, then validates it.
func ParseReport(content string) (*report.Report, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	rep := &report.Report{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), rep); err != nil {
		return nil, err
	}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	return rep, nil
}

// formatConversation renders conversational turns as labelled lines,
// dropping system notices.
func formatConversation(msgLog []chat.Message, assistantLabel string) string {
	var b strings.Builder
	for _, m := range msgLog {
		if !m.IsConversational() {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		label := "警员"
		if m.Role == chat.RoleAssistant {
			label = assistantLabel
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

// recentConversational returns the last limit conversational messages.
func recentConversational(msgLog []chat.Message, limit int) []chat.Message {
	conversational := make([]chat.Message, 0, len(msgLog))
	for _, m := range msgLog {
		if m.IsConversational() {
			conversational = append(conversational, m)
		}
	}
	if len(conversational) > limit {
		conversational = conversational[len(conversational)-limit:]
	}
	return conversational
}
