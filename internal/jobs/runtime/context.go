package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

/*
Context is the execution handle a handler gets for one job run.
Handlers never write the job row; they report through Progress, Fail and
Succeed and the runner persists the outcome in a single transition.
*/
type Context struct {
	Ctx context.Context
	Job *types.Job
	Log *logger.Logger

	payload map[string]any
	trail   []string
	result  map[string]any
	err     error
	done    bool
}

// NewContext decodes the job payload up front. A malformed payload is logged
// and left empty; handlers report missing inputs themselves.
func NewContext(ctx context.Context, baseLog *logger.Logger, job *types.Job) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{Ctx: ctx, Job: job, Log: baseLog}
	if job != nil {
		c.Log = baseLog.With("job_id", job.ID, "job_type", job.JobType)
	}
	if err := c.decodePayload(); err != nil {
		c.Log.Warn("Job payload decode failed", "error", err)
	}
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	c.payload = map[string]any{}
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(c.Job.Payload))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	if m != nil {
		c.payload = m
	}
	return nil
}

func (c *Context) applyTraceData() {
	traceID, _ := c.payload["trace_id"].(string)
	reqID, _ := c.payload["request_id"].(string)
	traceID, reqID = strings.TrimSpace(traceID), strings.TrimSpace(reqID)
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	return c.payload
}

// PayloadInt64 reads an integer payload field.
func (c *Context) PayloadInt64(key string) (int64, bool) {
	switch v := c.payload[key].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// TargetID prefers the job's target_id column and falls back to the payload key.
func (c *Context) TargetID(key string) (int64, bool) {
	if c.Job != nil && c.Job.TargetID != nil && *c.Job.TargetID > 0 {
		return *c.Job.TargetID, true
	}
	id, ok := c.PayloadInt64(key)
	return id, ok && id > 0
}

// Progress appends a line to the job log.
func (c *Context) Progress(stage, msg string) {
	line := stage
	if msg != "" {
		line = stage + ": " + msg
	}
	c.trail = append(c.trail, line)
	c.Log.Debug("Job progress", "stage", stage, "message", msg)
}

func (c *Context) Fail(stage string, err error) {
	if c.done {
		return
	}
	if err == nil {
		err = fmt.Errorf("unknown error")
	}
	c.done = true
	c.err = fmt.Errorf("%s: %w", stage, err)
	c.Progress(stage, "failed: "+err.Error())
}

func (c *Context) Succeed(stage string, result map[string]any) {
	if c.done {
		return
	}
	c.done = true
	c.result = result
	c.Progress(stage, "")
}

// Outcome reports what the handler decided. done is false when it never
// called Fail or Succeed.
func (c *Context) Outcome() (result map[string]any, done bool, err error) {
	return c.result, c.done, c.err
}

func (c *Context) Trail() string { return strings.Join(c.trail, "\n") }
