package synthesis_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dreamtumulus/andun/internal/model/chat"
	"github.com/dreamtumulus/andun/internal/model/report"
	"github.com/dreamtumulus/andun/internal/provider"
	"github.com/dreamtumulus/andun/internal/service/synthesis"
)

const reportJSON = `{
	"summary": "整体压力偏高",
	"stressSources": [{"category": "工作强度", "description": "连续加班", "severity": 7}],
	"psychologicalStatus": {"emotionalStability": "中等", "burnoutLevel": "偏高", "socialSupport": "一般"},
	"riskLevel": "medium",
	"riskAnalysis": "需关注",
	"recommendations": [{"title": "规律作息", "content": "固定睡眠时间", "type": "lifestyle"}]
}`

func assessmentLog() []chat.Message {
	return []chat.Message{
		{Role: chat.RoleAssistant, Text: "你好，今天工作累吗？"},
		{Role: chat.RoleOfficer, Text: "这周连着加班，睡不好。"},
		{Role: chat.RoleAssistant, Text: "辛苦了，说说看。"},
		{Role: chat.RoleOfficer, Text: "家里人也不太理解。"},
	}
}

func TestGenerateParsesAndStampsTime(t *testing.T) {
	var gotPrompt string
	var gotOpts provider.Options
	backend := provider.BackendFunc(func(_ context.Context, turns []provider.Turn, _ string, opts provider.Options) (string, error) {
		gotPrompt = turns[0].Text
		gotOpts = opts
		return reportJSON, nil
	})

	svc := synthesis.NewService(backend)
	before := time.Now().UTC()
	rep, err := svc.Generate(context.Background(), assessmentLog(), nil)
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if rep.RiskLevel != report.RiskMedium {
		t.Fatalf("unexpected risk level: %s", rep.RiskLevel)
	}
	if rep.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated not stamped: %v", rep.LastUpdated)
	}
	if !gotOpts.JSONMode {
		t.Fatal("synthesis must request JSON mode")
	}
	if !strings.Contains(gotPrompt, "警员: 这周连着加班，睡不好。") {
		t.Fatalf("conversation transcript missing from prompt: %s", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "评估助手:") {
		t.Fatal("assistant label missing from transcript")
	}
}

func TestGenerateRefreshIncludesPriorReport(t *testing.T) {
	var gotPrompt string
	backend := provider.BackendFunc(func(_ context.Context, turns []provider.Turn, _ string, _ provider.Options) (string, error) {
		gotPrompt = turns[0].Text
		return reportJSON, nil
	})

	prior := &report.Report{RiskLevel: report.RiskLow, Summary: "此前状态平稳"}
	svc := synthesis.NewService(backend)
	if _, err := svc.Generate(context.Background(), assessmentLog(), prior); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if !strings.Contains(gotPrompt, "此前状态平稳") {
		t.Fatal("prior report not embedded in refresh prompt")
	}
}

func TestGenerateStrippedFences(t *testing.T) {
	backend := provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		return "好的，以下是评估结果：\n```json\n" + reportJSON + "\n```\n希望对你有帮助。", nil
	})

	svc := synthesis.NewService(backend)
	rep, err := svc.Generate(context.Background(), assessmentLog(), nil)
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if rep.Summary != "整体压力偏高" {
		t.Fatalf("unexpected summary: %s", rep.Summary)
	}
}

func TestGenerateFailsOnGarbage(t *testing.T) {
	backend := provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		return "模型今天心情不好，拒绝输出 JSON。", nil
	})

	svc := synthesis.NewService(backend)
	_, err := svc.Generate(context.Background(), assessmentLog(), nil)
	if !errors.Is(err, synthesis.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateFailsOnBackendError(t *testing.T) {
	backend := provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		return "", errors.New("upstream down")
	})

	svc := synthesis.NewService(backend)
	_, err := svc.Generate(context.Background(), assessmentLog(), nil)
	if !errors.Is(err, synthesis.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateEmptyConversation(t *testing.T) {
	backend := provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		t.Fatal("backend must not be called without conversation")
		return "", nil
	})

	svc := synthesis.NewService(backend)
	msgLog := []chat.Message{{Role: chat.RoleSystem, Text: "已上传文件: x"}}
	if _, err := svc.Generate(context.Background(), msgLog, nil); !errors.Is(err, synthesis.ErrNotEnoughTurns) {
		t.Fatalf("expected ErrNotEnoughTurns, got %v", err)
	}
}

func TestRefineWindowsRecentTurns(t *testing.T) {
	var gotPrompt string
	backend := provider.BackendFunc(func(_ context.Context, turns []provider.Turn, _ string, _ provider.Options) (string, error) {
		gotPrompt = turns[0].Text
		return reportJSON, nil
	})

	var counselingLog []chat.Message
	for i := 0; i < 10; i++ {
		role := chat.RoleOfficer
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		counselingLog = append(counselingLog, chat.Message{Role: role, Text: turnText(i)})
	}

	prior := &report.Report{RiskLevel: report.RiskMedium}
	svc := synthesis.NewService(backend)
	if _, err := svc.Refine(context.Background(), prior, counselingLog); err != nil {
		t.Fatalf("Refine err: %v", err)
	}

	// 只回看最近 6 条，更早的轮次不进入提示词。
	if strings.Contains(gotPrompt, turnText(0)) {
		t.Fatal("refine prompt included turns outside the window")
	}
	if !strings.Contains(gotPrompt, turnText(9)) {
		t.Fatal("refine prompt missing the latest turn")
	}
	if !strings.Contains(gotPrompt, `"riskLevel":"medium"`) {
		t.Fatal("prior report missing from refine prompt")
	}
}

func TestRefineRequiresPrior(t *testing.T) {
	svc := synthesis.NewService(provider.BackendFunc(func(context.Context, []provider.Turn, string, provider.Options) (string, error) {
		return reportJSON, nil
	}))
	if _, err := svc.Refine(context.Background(), nil, assessmentLog()); !errors.Is(err, synthesis.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestParseReportRejectsInvalidEnum(t *testing.T) {
	bad := strings.Replace(reportJSON, `"riskLevel": "medium"`, `"riskLevel": "critical"`, 1)
	if _, err := synthesis.ParseReport(bad); err == nil {
		t.Fatal("expected error for invalid risk level")
	}
}

func TestParseReportClampsSeverity(t *testing.T) {
	bad := strings.Replace(reportJSON, `"severity": 7`, `"severity": 42`, 1)
	rep, err := synthesis.ParseReport(bad)
	if err != nil {
		t.Fatalf("ParseReport err: %v", err)
	}
	if rep.StressSources[0].Severity != 10 {
		t.Fatalf("severity not clamped: %d", rep.StressSources[0].Severity)
	}
}

func turnText(i int) string {
	return fmt.Sprintf("第%d轮对话内容。", i)
}
