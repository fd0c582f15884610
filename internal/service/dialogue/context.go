package dialogue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dreamtumulus/andun/internal/model/report"
	"github.com/dreamtumulus/andun/internal/model/subject"
)

// noHistoryMarker 明确告知模型没有历史档案，避免其臆造既往对话。
const noHistoryMarker = "暂无历史评估档案。这是该警员的首次评估，请勿引用任何不存在的既往对话。"

// BuildAssessmentContext formats the memory block for the assessment agent:
// a compact digest of prior risk level and stress-source categories, enough
// for continuity callbacks without dumping the full report.
func BuildAssessmentContext(rep *report.Report) string {
	if rep == nil {
		return noHistoryMarker
	}

	var b strings.Builder
	fmt.Fprintf(&b, "该警员已有历史评估档案（更新于 %s）。", rep.LastUpdated.Format("2006-01-02"))
	fmt.Fprintf(&b, "上次评估风险等级：%s。", rep.RiskLevel)
	if categories := rep.StressCategories(); len(categories) > 0 {
		fmt.Fprintf(&b, "主要压力源类别：%s。", strings.Join(categories, "、"))
	}
	b.WriteString("可以在对话中自然地回应和追踪这些既往话题。")
	return b.String()
}

// BuildCounselingContext formats the memory block for the counseling agent:
// the full report verbatim plus all uploaded documents, labelled by filename
// so provenance stays traceable in the model's context.
func BuildCounselingContext(rep *report.Report, docs []subject.Document) string {
	reportContext := "暂无详细报告"
	if rep != nil {
		if data, err := json.Marshal(rep); err == nil {
			reportContext = string(data)
		}
	}

	labelled := make([]string, 0, len(docs))
	for _, d := range docs {
		labelled = append(labelled, fmt.Sprintf("文件 [%s]: %s", d.Name, d.Content))
	}
	documentContext := strings.Join(labelled, "\n\n---\n\n")
	if documentContext == "" {
		documentContext = "（无上传档案）"
	}

	return fmt.Sprintf("【最新评估报告数据】：\n%s\n\n【用户上传的历史档案】：\n%s", reportContext, documentContext)
}
