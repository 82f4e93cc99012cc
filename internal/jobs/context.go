package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// Context is the execution handle for a single claimed job run. Pipelines
// never touch the job_run row directly; stage reporting and terminal
// transitions go through Progress, Fail and Succeed.
type Context struct {
	Ctx  context.Context
	DB   *gorm.DB
	Log  *logger.Logger
	Job  *domain.JobRun
	Repo repos.JobRunRepo

	payload map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, log *logger.Logger, job *domain.JobRun, repo repos.JobRunRepo) *Context {
	c := &Context{
		Ctx:  ctx,
		DB:   db,
		Log:  log,
		Job:  job,
		Repo: repo,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload returns the decoded payload map. Never nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadUint reads a payload field as an unsigned integer. JSON numbers
// decode as float64, so values are converted through that.
func (c *Context) PayloadUint(key string) (uint, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0, false
	}
	return uint(f), true
}

func (c *Context) PayloadString(key string) (string, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Progress records the current stage on the job_run row. Non-terminal.
func (c *Context) Progress(stage string) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	if err := c.Repo.UpdateFields(c.Ctx, nil, c.Job.ID, map[string]interface{}{
		"stage": stage,
	}); err != nil {
		c.Log.Warn("failed to record job stage", "jobID", c.Job.ID, "stage", stage, "error", err)
		return
	}
	c.Job.Stage = stage
}

// Fail marks the run terminally failed and records the error.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	now := time.Now()
	if uErr := c.Repo.UpdateFields(c.Ctx, nil, c.Job.ID, map[string]interface{}{
		"status":     domain.JobStatusFailed,
		"stage":      stage,
		"error":      msg,
		"locked_at":  nil,
		"updated_at": now,
	}); uErr != nil {
		c.Log.Error("failed to mark job failed", "jobID", c.Job.ID, "error", uErr)
		return
	}
	c.Job.Status = domain.JobStatusFailed
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
}

// Succeed marks the run terminally succeeded and persists a result payload.
func (c *Context) Succeed(stage string, result map[string]any) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	var raw datatypes.JSON
	if result != nil {
		if b, mErr := json.Marshal(result); mErr == nil {
			raw = datatypes.JSON(b)
		}
	}
	now := time.Now()
	if uErr := c.Repo.UpdateFields(c.Ctx, nil, c.Job.ID, map[string]interface{}{
		"status":     domain.JobStatusSucceeded,
		"stage":      stage,
		"result":     raw,
		"locked_at":  nil,
		"updated_at": now,
	}); uErr != nil {
		c.Log.Error("failed to mark job succeeded", "jobID", c.Job.ID, "error", uErr)
		return
	}
	c.Job.Status = domain.JobStatusSucceeded
	c.Job.Stage = stage
	c.Job.Result = raw
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
}
