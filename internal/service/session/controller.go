package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dreamtumulus/andun/internal/model/chat"
	"github.com/dreamtumulus/andun/internal/model/report"
	"github.com/dreamtumulus/andun/internal/model/subject"
	"github.com/dreamtumulus/andun/internal/service/dialogue"
	"github.com/dreamtumulus/andun/internal/service/synthesis"
	"github.com/dreamtumulus/andun/internal/store"
)

// Mode 会话所处的阶段。
type Mode string

const (
	ModeDashboard  Mode = "dashboard"
	ModeAssessment Mode = "assessment"
	ModeReport     Mode = "report"
	ModeCounseling Mode = "counseling"
)

// 转移门槛：评估满 3 轮才能生成报告，咨询记录满 2 条才能刷新档案。
const (
	minAssessmentTurns   = 3
	minCounselingEntries = 2
)

var (
	ErrPipelineBusy    = errors.New("a request is already in flight for this conversation")
	ErrGuardNotMet     = errors.New("transition guard not met")
	ErrNoReport        = errors.New("no report exists yet")
	ErrForbidden       = errors.New("subject record not accessible to this identity")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidFeedback = errors.New("invalid feedback value")
)

// Context carries who is acting and whose record is being viewed. An admin's
// identity persists across subject views; everyone else only ever views their
// own record.
type Context struct {
	Identity  subject.User
	SubjectID string
}

func (c Context) isAdmin() bool {
	return c.Identity.Role == subject.RoleAdmin
}

func (c Context) modeKey() string {
	return c.Identity.ID + "|" + c.SubjectID
}

// Snapshot is the controller state exposed to the interaction layer, which
// uses the guard fields to disable actions instead of surfacing errors.
type Snapshot struct {
	Mode              Mode           `json:"mode"`
	TurnCount         int            `json:"turnCount"`
	HasReport         bool           `json:"hasReport"`
	CanGenerateReport bool           `json:"canGenerateReport"`
	CanRefreshReport  bool           `json:"canRefreshReport"`
	AssessmentBusy    bool           `json:"assessmentBusy"`
	CounselingBusy    bool           `json:"counselingBusy"`
	Record            subject.Record `json:"record"`
}

// Controller coordinates the assessment → report → counseling workflow:
// mode transitions, report-generation guards, busy flags, and admin
// view-as-subject sessions.
type Controller struct {
	store      store.Store
	assessment *dialogue.Pipeline
	counseling *dialogue.Pipeline
	synth      *synthesis.Service

	mu    sync.Mutex
	modes map[string]Mode
	busy  map[string]bool
}

// NewController wires the pipelines, synthesizer and store together.
func NewController(st store.Store, assessment, counseling *dialogue.Pipeline, synth *synthesis.Service) *Controller {
	return &Controller{
		store:      st,
		assessment: assessment,
		counseling: counseling,
		synth:      synth,
		modes:      make(map[string]Mode),
		busy:       make(map[string]bool),
	}
}

func (c *Controller) authorize(sc Context) error {
	if sc.SubjectID == "" {
		return store.ErrEmptySubjectID
	}
	if !sc.isAdmin() && sc.SubjectID != sc.Identity.ID {
		return ErrForbidden
	}
	return nil
}

// acquire sets the busy flag for one conversation channel, rejecting a
// second send while a prior one is outstanding.
func (c *Controller) acquire(subjectID string, kind dialogue.Kind) (release func(), err error) {
	key := subjectID + "|" + string(kind)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[key] {
		return nil, ErrPipelineBusy
	}
	c.busy[key] = true
	return func() {
		c.mu.Lock()
		delete(c.busy, key)
		c.mu.Unlock()
	}, nil
}

func (c *Controller) isBusy(subjectID string, kind dialogue.Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[subjectID+"|"+string(kind)]
}

func (c *Controller) currentMode(sc Context, rec subject.Record) Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode, ok := c.modes[sc.modeKey()]; ok {
		return mode
	}
	// Landing mode: admins reviewing a subject with a report start there.
	mode := ModeAssessment
	if sc.isAdmin() && rec.Report != nil {
		mode = ModeReport
	}
	c.modes[sc.modeKey()] = mode
	return mode
}

func (c *Controller) setMode(sc Context, mode Mode) {
	c.mu.Lock()
	c.modes[sc.modeKey()] = mode
	c.mu.Unlock()
}

// loadRecord fetches the record, seeding the assessment greeting on first
// access so a fresh subject never faces an empty screen.
func (c *Controller) loadRecord(ctx context.Context, subjectID string) (subject.Record, error) {
	rec, err := c.store.Get(ctx, subjectID)
	if err != nil {
		return subject.Record{}, err
	}
	if len(rec.AssessmentLog) == 0 {
		rec.AssessmentLog = []chat.Message{newMessage(chat.RoleAssistant, c.assessment.Agent().Greeting())}
		if err := c.store.Save(ctx, subjectID, subject.Patch{AssessmentLog: rec.AssessmentLog}); err != nil {
			return subject.Record{}, err
		}
	}
	return rec, nil
}

// State returns the controller snapshot for the viewed subject.
func (c *Controller) State(ctx context.Context, sc Context) (Snapshot, error) {
	if err := c.authorize(sc); err != nil {
		return Snapshot{}, err
	}
	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return Snapshot{}, err
	}
	return c.snapshot(sc, rec), nil
}

func (c *Controller) snapshot(sc Context, rec subject.Record) Snapshot {
	return Snapshot{
		Mode:              c.currentMode(sc, rec),
		TurnCount:         rec.TurnCount,
		HasReport:         rec.Report != nil,
		CanGenerateReport: rec.TurnCount >= minAssessmentTurns,
		CanRefreshReport:  rec.Report != nil && len(rec.CounselingLog) >= minCounselingEntries,
		AssessmentBusy:    c.isBusy(sc.SubjectID, dialogue.KindAssessment),
		CounselingBusy:    c.isBusy(sc.SubjectID, dialogue.KindCounseling),
		Record:            rec,
	}
}

// SendAssessment runs one assessment exchange. The officer turn is persisted
// before the assistant reply is requested, so a backend failure never loses
// the user's own input.
func (c *Controller) SendAssessment(ctx context.Context, sc Context, text string) (Snapshot, error) {
	if err := c.authorize(sc); err != nil {
		return Snapshot{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Snapshot{}, dialogue.ErrEmptyMessage
	}

	release, err := c.acquire(sc.SubjectID, dialogue.KindAssessment)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()

	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return Snapshot{}, err
	}

	history := rec.AssessmentLog
	updated := append(append([]chat.Message(nil), history...), newMessage(chat.RoleOfficer, text))
	turnCount := rec.TurnCount + 1
	if err := c.store.Save(ctx, sc.SubjectID, subject.Patch{AssessmentLog: updated, TurnCount: &turnCount}); err != nil {
		return Snapshot{}, err
	}

	memoryCtx := dialogue.BuildAssessmentContext(rec.Report)
	reply, err := c.assessment.Send(ctx, history, text, memoryCtx)
	if err != nil {
		return Snapshot{}, err
	}

	updated = append(updated, newMessage(chat.RoleAssistant, reply))
	if err := c.store.Save(ctx, sc.SubjectID, subject.Patch{AssessmentLog: updated}); err != nil {
		return Snapshot{}, err
	}

	rec.AssessmentLog = updated
	rec.TurnCount = turnCount
	c.setMode(sc, ModeAssessment)
	return c.snapshot(sc, rec), nil
}

// SendCounseling runs one counseling exchange. Counseling requires an
// existing report.
func (c *Controller) SendCounseling(ctx context.Context, sc Context, text string) (Snapshot, error) {
	if err := c.authorize(sc); err != nil {
		return Snapshot{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Snapshot{}, dialogue.ErrEmptyMessage
	}

	release, err := c.acquire(sc.SubjectID, dialogue.KindCounseling)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()

	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return Snapshot{}, err
	}
	if rec.Report == nil {
		return Snapshot{}, ErrNoReport
	}

	history := rec.CounselingLog
	updated := append(append([]chat.Message(nil), history...), newMessage(chat.RoleOfficer, text))
	if err := c.store.Save(ctx, sc.SubjectID, subject.Patch{CounselingLog: updated}); err != nil {
		return Snapshot{}, err
	}

	memoryCtx := dialogue.BuildCounselingContext(rec.Report, rec.Documents)
	reply, err := c.counseling.Send(ctx, history, text, memoryCtx)
	if err != nil {
		return Snapshot{}, err
	}

	updated = append(updated, newMessage(chat.RoleAssistant, reply))
	if err := c.store.Save(ctx, sc.SubjectID, subject.Patch{CounselingLog: updated}); err != nil {
		return Snapshot{}, err
	}

	rec.CounselingLog = updated
	c.setMode(sc, ModeCounseling)
	return c.snapshot(sc, rec), nil
}

// GenerateReport synthesizes (or refreshes) the structured report from the
// assessment log. Below the evidence threshold nothing is invoked and the
// stored state is untouched. On first success the counseling log is seeded
// with the scripted greeting.
func (c *Controller) GenerateReport(ctx context.Context, sc Context) (*report.Report, error) {
	if err := c.authorize(sc); err != nil {
		return nil, err
	}

	release, err := c.acquire(sc.SubjectID, "synthesis")
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return nil, err
	}
	if rec.TurnCount < minAssessmentTurns {
		return nil, fmt.Errorf("%w: need %d assessment turns, have %d", ErrGuardNotMet, minAssessmentTurns, rec.TurnCount)
	}

	rep, err := c.synth.Generate(ctx, rec.AssessmentLog, rec.Report)
	if err != nil {
		// Keep the prior report (or none) unchanged.
		return nil, err
	}

	patch := subject.Patch{Report: &rep}
	if len(rec.CounselingLog) == 0 {
		patch.CounselingLog = []chat.Message{newMessage(chat.RoleAssistant, c.counseling.Agent().Greeting())}
	}
	if err := c.store.Save(ctx, sc.SubjectID, patch); err != nil {
		return nil, err
	}

	c.setMode(sc, ModeReport)
	log.Printf("[session] report generated for subject=%s risk=%s", sc.SubjectID, rep.RiskLevel)
	return rep, nil
}

// RefreshReport re-synthesizes the report from recent counseling turns and
// appends a system notice announcing the update.
func (c *Controller) RefreshReport(ctx context.Context, sc Context) (*report.Report, error) {
	if err := c.authorize(sc); err != nil {
		return nil, err
	}

	release, err := c.acquire(sc.SubjectID, "synthesis")
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return nil, err
	}
	if rec.Report == nil {
		return nil, ErrNoReport
	}
	if len(rec.CounselingLog) < minCounselingEntries {
		return nil, fmt.Errorf("%w: need %d counseling entries, have %d", ErrGuardNotMet, minCounselingEntries, len(rec.CounselingLog))
	}

	rep, err := c.synth.Refine(ctx, rec.Report, rec.CounselingLog)
	if err != nil {
		return nil, err
	}

	notice := newMessage(chat.RoleSystem, "【系统通知】：根据刚才的沟通，心理评估档案已同步更新。")
	updated := append(append([]chat.Message(nil), rec.CounselingLog...), notice)
	if err := c.store.Save(ctx, sc.SubjectID, subject.Patch{Report: &rep, CounselingLog: updated}); err != nil {
		return nil, err
	}

	log.Printf("[session] report refreshed for subject=%s risk=%s", sc.SubjectID, rep.RiskLevel)
	return rep, nil
}

// UploadDocument appends one document and one system notice announcing it.
// Documents accumulate only during counseling.
func (c *Controller) UploadDocument(ctx context.Context, sc Context, name, content string) (Snapshot, error) {
	if err := c.authorize(sc); err != nil {
		return Snapshot{}, err
	}

	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return Snapshot{}, err
	}
	if rec.Report == nil {
		return Snapshot{}, ErrNoReport
	}

	docs := append(append([]subject.Document(nil), rec.Documents...), subject.Document{Name: name, Content: content})
	notice := newMessage(chat.RoleSystem, fmt.Sprintf("已上传文件: %s", name))
	updatedLog := append(append([]chat.Message(nil), rec.CounselingLog...), notice)

	if err := c.store.Save(ctx, sc.SubjectID, subject.Patch{Documents: docs, CounselingLog: updatedLog}); err != nil {
		return Snapshot{}, err
	}

	rec.Documents = docs
	rec.CounselingLog = updatedLog
	return c.snapshot(sc, rec), nil
}

// SetFeedback toggles feedback on one message. Re-applying the same value is
// a no-op; the other value overwrites.
func (c *Controller) SetFeedback(ctx context.Context, sc Context, messageID, value string) error {
	if err := c.authorize(sc); err != nil {
		return err
	}
	if !chat.ValidFeedback(value) {
		return ErrInvalidFeedback
	}

	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return err
	}

	if updated, ok := applyFeedback(rec.CounselingLog, messageID, value); ok {
		return c.store.Save(ctx, sc.SubjectID, subject.Patch{CounselingLog: updated})
	}
	if updated, ok := applyFeedback(rec.AssessmentLog, messageID, value); ok {
		return c.store.Save(ctx, sc.SubjectID, subject.Patch{AssessmentLog: updated})
	}
	return ErrMessageNotFound
}

// EnterCounseling transitions Report → Counseling, guarded on report
// existence.
func (c *Controller) EnterCounseling(ctx context.Context, sc Context) (Snapshot, error) {
	if err := c.authorize(sc); err != nil {
		return Snapshot{}, err
	}
	rec, err := c.loadRecord(ctx, sc.SubjectID)
	if err != nil {
		return Snapshot{}, err
	}
	if rec.Report == nil {
		return Snapshot{}, ErrNoReport
	}
	c.setMode(sc, ModeCounseling)
	return c.snapshot(sc, rec), nil
}

// EndSession exits the current view: administrators return to the dashboard,
// subjects to the report view. Persisted data is untouched.
func (c *Controller) EndSession(sc Context) Mode {
	if sc.isAdmin() {
		c.mu.Lock()
		delete(c.modes, sc.modeKey())
		c.mu.Unlock()
		return ModeDashboard
	}
	c.setMode(sc, ModeReport)
	return ModeReport
}

// ViewSubject starts an admin review session: lands on the report when one
// exists, otherwise on the assessment transcript.
func (c *Controller) ViewSubject(ctx context.Context, sc Context) (Snapshot, error) {
	if !sc.isAdmin() {
		return Snapshot{}, ErrForbidden
	}
	return c.State(ctx, sc)
}

// Dashboard summarizes every officer's record for the admin view.
func (c *Controller) Dashboard(ctx context.Context, officers []subject.User) ([]subject.Stat, error) {
	stats := make([]subject.Stat, 0, len(officers))
	for _, u := range officers {
		rec, err := c.store.Get(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		stat := subject.Stat{
			User:      u,
			HasReport: rec.Report != nil,
			RiskLevel: "unknown",
			TurnCount: rec.TurnCount,
		}
		if rec.Report != nil {
			stat.RiskLevel = rec.Report.RiskLevel
			updated := rec.Report.LastUpdated
			stat.LastUpdated = &updated
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func applyFeedback(msgLog []chat.Message, messageID, value string) ([]chat.Message, bool) {
	for i := range msgLog {
		if msgLog[i].ID != messageID {
			continue
		}
		if msgLog[i].Feedback == value {
			return msgLog, true // idempotent re-apply
		}
		updated := append([]chat.Message(nil), msgLog...)
		updated[i].Feedback = value
		return updated, true
	}
	return nil, false
}

func newMessage(role, text string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}
