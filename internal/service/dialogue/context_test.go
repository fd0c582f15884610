package dialogue_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dreamtumulus/andun/internal/model/report"
	"github.com/dreamtumulus/andun/internal/model/subject"
	"github.com/dreamtumulus/andun/internal/service/dialogue"
)

func TestBuildAssessmentContextNoHistory(t *testing.T) {
	got := dialogue.BuildAssessmentContext(nil)
	if !strings.Contains(got, "暂无历史评估档案") {
		t.Fatalf("missing no-history marker: %s", got)
	}
}

func TestBuildAssessmentContextDigest(t *testing.T) {
	rep := &report.Report{
		LastUpdated: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		RiskLevel:   report.RiskMedium,
		StressSources: []report.StressSource{
			{Category: "工作强度", Severity: 7},
			{Category: "家庭关系", Severity: 5},
		},
	}

	got := dialogue.BuildAssessmentContext(rep)
	for _, want := range []string{"2026-03-14", "medium", "工作强度、家庭关系"} {
		if !strings.Contains(got, want) {
			t.Fatalf("digest missing %q: %s", want, got)
		}
	}
	// 摘要不包含完整报告字段。
	if strings.Contains(got, "riskAnalysis") {
		t.Fatal("digest leaked full report fields")
	}
}

func TestBuildCounselingContextFullReportAndDocs(t *testing.T) {
	rep := &report.Report{RiskLevel: report.RiskHigh, Summary: "压力显著"}
	docs := []subject.Document{
		{Name: "体检报告.txt", Content: "血压偏高"},
		{Name: "既往档案.txt", Content: "曾接受咨询"},
	}

	got := dialogue.BuildCounselingContext(rep, docs)
	for _, want := range []string{
		"【最新评估报告数据】",
		`"riskLevel":"high"`,
		"文件 [体检报告.txt]: 血压偏高",
		"文件 [既往档案.txt]: 曾接受咨询",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("context missing %q: %s", want, got)
		}
	}
}

func TestBuildCounselingContextWithoutReport(t *testing.T) {
	got := dialogue.BuildCounselingContext(nil, nil)
	if !strings.Contains(got, "暂无详细报告") {
		t.Fatalf("missing report placeholder: %s", got)
	}
	if !strings.Contains(got, "（无上传档案）") {
		t.Fatalf("missing document placeholder: %s", got)
	}
}
