package subject

import (
	"time"

	"github.com/dreamtumulus/andun/internal/model/chat"
	"github.com/dreamtumulus/andun/internal/model/report"
)

// 用户角色。
const (
	RoleAdmin   = "admin"
	RoleOfficer = "officer"
)

// User 登录身份。管理员可查看任意警员的档案。
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	BadgeNumber string `json:"badgeNumber,omitempty"`
}

// Document 咨询阶段上传的档案文件，仅作纯文本注入模型上下文。
type Document struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Record aggregates everything persisted for one subject. Created lazily on
// first access, never destroyed; session end only changes the active view.
type Record struct {
	AssessmentLog []chat.Message  `json:"assessmentLog"`
	CounselingLog []chat.Message  `json:"counselingLog"`
	Report        *report.Report  `json:"report,omitempty"`
	Documents     []Document      `json:"documents"`
	TurnCount     int             `json:"turnCount"`
}

// Patch names the top-level fields to overwrite on save. Nil fields are left
// untouched; set fields replace the stored value wholesale (shallow merge).
type Patch struct {
	AssessmentLog []chat.Message
	CounselingLog []chat.Message
	Report        **report.Report // double pointer: set-to-nil is a valid write
	Documents     []Document
	TurnCount     *int
}

// Apply merges the patch into the record.
func (p Patch) Apply(r *Record) {
	if p.AssessmentLog != nil {
		r.AssessmentLog = p.AssessmentLog
	}
	if p.CounselingLog != nil {
		r.CounselingLog = p.CounselingLog
	}
	if p.Report != nil {
		r.Report = *p.Report
	}
	if p.Documents != nil {
		r.Documents = p.Documents
	}
	if p.TurnCount != nil {
		r.TurnCount = *p.TurnCount
	}
}

// Clone returns a deep-enough copy so callers can append without mutating
// stored state.
func (r Record) Clone() Record {
	out := r
	out.AssessmentLog = append([]chat.Message(nil), r.AssessmentLog...)
	out.CounselingLog = append([]chat.Message(nil), r.CounselingLog...)
	out.Documents = append([]Document(nil), r.Documents...)
	if r.Report != nil {
		rep := *r.Report
		rep.StressSources = append([]report.StressSource(nil), r.Report.StressSources...)
		rep.Recommendations = append([]report.Recommendation(nil), r.Report.Recommendations...)
		out.Report = &rep
	}
	return out
}

// Stat 管理端看板的单个警员概览。
type Stat struct {
	User        User       `json:"user"`
	HasReport   bool       `json:"hasReport"`
	RiskLevel   string     `json:"riskLevel"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	TurnCount   int        `json:"turnCount"`
}

// Seed provides the demo users required by the product spec.
func Seed() []User {
	return []User{
		{ID: "admin", Username: "admin", Name: "系统管理员", Role: RoleAdmin},
		{ID: "u1", Username: "9527", Name: "周星星", Role: RoleOfficer, BadgeNumber: "PC9527"},
		{ID: "u2", Username: "8848", Name: "陈永仁", Role: RoleOfficer, BadgeNumber: "PC8848"},
		{ID: "u3", Username: "007", Name: "凌凌漆", Role: RoleOfficer, BadgeNumber: "PC007"},
	}
}
