package store

import (
	"context"
	"time"

	"github.com/dreamtumulus/andun/internal/model/report"
	"github.com/dreamtumulus/andun/internal/model/subject"
)

// SeedDemo pre-fills one high-risk demo record so the admin dashboard has
// something to show on a fresh install. Existing data is left alone.
func SeedDemo(ctx context.Context, s Store) error {
	rec, err := s.Get(ctx, "u2")
	if err != nil {
		return err
	}
	if rec.Report != nil || len(rec.AssessmentLog) > 0 {
		return nil
	}

	demo := &report.Report{
		LastUpdated: time.Now().UTC(),
		Summary:     "该警员表现出明显的长期潜伏压力，可能由于长期的卧底工作导致身份认同困扰。表现出焦虑、失眠以及对周围环境的过度警觉。",
		StressSources: []report.StressSource{
			{Category: "身份认同危机", Description: "长期处于高压伪装状态，难以切换回真实自我", Severity: 9},
			{Category: "睡眠障碍", Description: "严重的入睡困难和噩梦", Severity: 8},
		},
		PsychologicalStatus: report.PsychologicalStatus{
			EmotionalStability: "较差，易激惹",
			BurnoutLevel:       "重度耗竭",
			SocialSupport:      "极度缺乏，孤立无援",
		},
		RiskLevel:    report.RiskHigh,
		RiskAnalysis: "存在高度的PTSD风险和抑郁倾向，建议立即介入干预。",
		Recommendations: []report.Recommendation{
			{Title: "强制休假", Content: "建议立即停止一线任务，进行脱敏治疗。", Type: report.TypeProfessional},
		},
	}

	turns := 10
	return s.Save(ctx, "u2", subject.Patch{
		Report:    &demo,
		TurnCount: &turns,
	})
}
