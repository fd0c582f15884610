package dialogue_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dreamtumulus/andun/internal/model/chat"
	"github.com/dreamtumulus/andun/internal/provider"
	"github.com/dreamtumulus/andun/internal/service/dialogue"
)

func TestSendForwardsHistoryAndContext(t *testing.T) {
	var gotTurns []provider.Turn
	var gotSystem string
	var gotOpts provider.Options
	backend := provider.BackendFunc(func(_ context.Context, turns []provider.Turn, system string, opts provider.Options) (string, error) {
		gotTurns = turns
		gotSystem = system
		gotOpts = opts
		return "辛苦了", nil
	})

	p := dialogue.NewPipeline(backend, dialogue.DefaultAssessmentAgent(""))
	msgLog := []chat.Message{
		{Role: chat.RoleAssistant, Text: "你好"},
		{Role: chat.RoleOfficer, Text: "最近加班很多"},
		{Role: chat.RoleSystem, Text: "【系统通知】：档案已更新。"},
	}

	reply, err := p.Send(context.Background(), msgLog, "睡不好", "暂无历史评估档案")
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if reply != "辛苦了" {
		t.Fatalf("unexpected reply: %s", reply)
	}

	// 系统通知被过滤，新输入追加为最后一个 user 轮次。
	if len(gotTurns) != 3 {
		t.Fatalf("expected 3 turns, got %d: %+v", len(gotTurns), gotTurns)
	}
	last := gotTurns[len(gotTurns)-1]
	if last.Role != "user" || last.Text != "睡不好" {
		t.Fatalf("unexpected last turn: %+v", last)
	}
	if !strings.Contains(gotSystem, "心语") {
		t.Fatalf("agent name missing from system instruction: %s", gotSystem)
	}
	if !strings.Contains(gotSystem, "暂无历史评估档案") {
		t.Fatal("memory context not injected into system instruction")
	}
	if gotOpts.Temperature != 0.5 {
		t.Fatalf("unexpected temperature: %v", gotOpts.Temperature)
	}
}

func TestSendEmptyMessage(t *testing.T) {
	backend := provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		t.Fatal("backend must not be called for empty input")
		return "", nil
	})
	p := dialogue.NewPipeline(backend, dialogue.DefaultAssessmentAgent(""))

	if _, err := p.Send(context.Background(), nil, "   ", ""); !errors.Is(err, dialogue.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendFallbackOnBackendError(t *testing.T) {
	backend := provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		return "", errors.New("upstream down")
	})

	assessment := dialogue.NewPipeline(backend, dialogue.DefaultAssessmentAgent(""))
	reply, err := assessment.Send(context.Background(), nil, "你好", "")
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if reply != assessment.Fallback() {
		t.Fatalf("expected fallback utterance, got %s", reply)
	}

	counseling := dialogue.NewPipeline(backend, dialogue.DefaultCounselingAgent("蓝盾"))
	reply, err = counseling.Send(context.Background(), nil, "你好", "")
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if !strings.Contains(reply, "蓝盾") {
		t.Fatalf("counseling fallback should carry the agent name: %s", reply)
	}
}

func TestSendDoesNotMutateLog(t *testing.T) {
	backend := provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		return "ok", nil
	})
	p := dialogue.NewPipeline(backend, dialogue.DefaultAssessmentAgent(""))

	msgLog := []chat.Message{{ID: "m1", Role: chat.RoleOfficer, Text: "原文"}}
	if _, err := p.Send(context.Background(), msgLog, "新输入", ""); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if len(msgLog) != 1 || msgLog[0].Text != "原文" {
		t.Fatalf("input log mutated: %+v", msgLog)
	}
}
