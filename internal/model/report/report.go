package report

import (
	"fmt"
	"time"
)

// 风险等级闭集。档案缺失（尚未生成）区别于 low，不在枚举内。
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// 建议类型。
const (
	TypeImmediate    = "immediate"
	TypeLifestyle    = "lifestyle"
	TypeProfessional = "professional"
)

// StressSource 单个压力源条目，severity 取值 [1,10]。
type StressSource struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
}

// PsychologicalStatus 心理状态三项文字评估。
type PsychologicalStatus struct {
	EmotionalStability string `json:"emotionalStability"`
	BurnoutLevel       string `json:"burnoutLevel"`
	SocialSupport      string `json:"socialSupport"`
}

// Recommendation 单条干预建议。
type Recommendation struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Report is the structured memory object synthesized from conversation.
// Exactly one report is live per subject; generation and refresh replace
// the object wholesale.
type Report struct {
	LastUpdated         time.Time           `json:"lastUpdated"`
	Summary             string              `json:"summary"`
	StressSources       []StressSource      `json:"stressSources"`
	PsychologicalStatus PsychologicalStatus `json:"psychologicalStatus"`
	RiskLevel           string              `json:"riskLevel"`
	RiskAnalysis        string              `json:"riskAnalysis"`
	Recommendations     []Recommendation    `json:"recommendations"`
}

// ValidRiskLevel reports whether level belongs to the closed enum.
func ValidRiskLevel(level string) bool {
	return level == RiskLow || level == RiskMedium || level == RiskHigh
}

// Validate normalizes a model-produced report. Severities outside [1,10]
// are clamped; an unknown risk level or recommendation type rejects the
// whole object because the synthesis prompt was not honored.
func (r *Report) Validate() error {
	if r == nil {
		return fmt.Errorf("nil report")
	}
	if !ValidRiskLevel(r.RiskLevel) {
		return fmt.Errorf("invalid risk level %q", r.RiskLevel)
	}
	for i := range r.StressSources {
		if r.StressSources[i].Severity < 1 {
			r.StressSources[i].Severity = 1
		}
		if r.StressSources[i].Severity > 10 {
			r.StressSources[i].Severity = 10
		}
	}
	for _, rec := range r.Recommendations {
		switch rec.Type {
		case TypeImmediate, TypeLifestyle, TypeProfessional:
		default:
			return fmt.Errorf("invalid recommendation type %q", rec.Type)
		}
	}
	return nil
}

// StressCategories lists the categories of all stress sources, used for the
// compact digest injected into the assessment agent.
func (r *Report) StressCategories() []string {
	if r == nil {
		return nil
	}
	categories := make([]string, 0, len(r.StressSources))
	for _, s := range r.StressSources {
		categories = append(categories, s.Category)
	}
	return categories
}
