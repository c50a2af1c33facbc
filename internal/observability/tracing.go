package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Stage times one phase of an audit run (load, reconcile, attribution,
// funnel, anomalies, render). Stages nest: one started from a context that
// already holds a stage records that stage as its parent and inherits its
// run id.
type Stage struct {
	RunID     string            `json:"run_id"`
	StageID   string            `json:"stage_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Name      string            `json:"name"`
	StartTime time.Time         `json:"start_time"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	Duration  *time.Duration    `json:"duration,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Status    StageStatus       `json:"status"`
	Error     string            `json:"error,omitempty"`
}

type StageStatus string

const (
	StageStatusOK    StageStatus = "OK"
	StageStatusError StageStatus = "ERROR"
)

type stageContextKey struct{}

func StartStage(ctx context.Context, name string) (context.Context, *Stage) {
	stage := &Stage{
		RunID:     runIDFor(ctx),
		StageID:   newStageID(),
		Name:      name,
		StartTime: time.Now(),
		Status:    StageStatusOK,
		Tags:      make(map[string]string),
	}

	if parent := GetStage(ctx); parent != nil {
		stage.ParentID = parent.StageID
		stage.RunID = parent.RunID
	}

	return context.WithValue(ctx, stageContextKey{}, stage), stage
}

func (s *Stage) Finish() {
	now := time.Now()
	s.EndTime = &now
	duration := now.Sub(s.StartTime)
	s.Duration = &duration
}

func (s *Stage) SetTag(key, value string) {
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

func (s *Stage) SetError(err error) {
	s.Status = StageStatusError
	if err != nil {
		s.Error = err.Error()
	}
}

func GetStage(ctx context.Context) *Stage {
	if stage, ok := ctx.Value(stageContextKey{}).(*Stage); ok {
		return stage
	}
	return nil
}

func runIDFor(ctx context.Context) string {
	if id := GetRunID(ctx); id != "" {
		return id
	}
	return NewRunID()
}

func newStageID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
