package dbtmcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	retry "github.com/avast/retry-go"

	interrors "github.com/sparkfiresmoke/dbt-mcp/internal/errors"
)

// Exchanger is the request/response primitive the job poller builds on: one
// request in, its correlated response out. StreamableTransport satisfies it;
// so does the semantic layer GraphQL adapter.
type Exchanger interface {
	Call(ctx context.Context, req *JSONRPCRequest) (*JSONRPCResponse, error)
}

// JobStatus is the remote status of an asynchronous server-side job.
type JobStatus string

// Job status constants as reported by the server. COMPILED is an
// intermediate status the semantic layer reports between compilation and
// execution; it is not terminal.
const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusRunning    JobStatus = "RUNNING"
	JobStatusCompiled   JobStatus = "COMPILED"
	JobStatusSuccessful JobStatus = "SUCCESSFUL"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether a status ends the polling loop.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccessful || s == JobStatusFailed
}

// JobSpec describes a job submission: the request to send and the result
// field carrying the identifier of the created job.
type JobSpec struct {
	Method  string
	Params  interface{}
	IDField string
}

// Polling defaults. The workload is a short-running analytical query where
// responsiveness matters more than backoff sophistication, so the interval
// is fixed.
const (
	DefaultPollInterval    = 1 * time.Second
	DefaultPollMaxAttempts = 30
)

// JobPoller turns a slow asynchronous remote computation into a single
// synchronous result: submit a job, then poll its status at a fixed
// interval until it reaches a terminal state or the attempt budget runs
// out.
type JobPoller struct {
	exchanger    Exchanger
	statusMethod string
	statusParam  string
	interval     time.Duration
	maxAttempts  int
	logger       Logger
	recorder     MetricsRecorder

	nextID int64
}

// JobPollerOption configures a JobPoller.
type JobPollerOption func(*JobPoller)

// WithPollInterval sets the fixed sleep between status polls.
func WithPollInterval(interval time.Duration) JobPollerOption {
	return func(p *JobPoller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithPollMaxAttempts sets the poll attempt budget.
func WithPollMaxAttempts(attempts int) JobPollerOption {
	return func(p *JobPoller) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
	}
}

// WithStatusRequest sets the method and parameter key used for status
// requests.
func WithStatusRequest(method, jobIDParam string) JobPollerOption {
	return func(p *JobPoller) {
		p.statusMethod = method
		p.statusParam = jobIDParam
	}
}

// WithPollerLogger sets the logger for the poller.
func WithPollerLogger(logger Logger) JobPollerOption {
	return func(p *JobPoller) {
		p.logger = logger
	}
}

// WithPollerMetricsRecorder sets the metrics recorder for the poller.
func WithPollerMetricsRecorder(recorder MetricsRecorder) JobPollerOption {
	return func(p *JobPoller) {
		if recorder != nil {
			p.recorder = recorder
		}
	}
}

// NewJobPoller creates a poller issuing its requests through exchanger.
func NewJobPoller(exchanger Exchanger, options ...JobPollerOption) *JobPoller {
	p := &JobPoller{
		exchanger:    exchanger,
		statusMethod: "query",
		statusParam:  "jobId",
		interval:     DefaultPollInterval,
		maxAttempts:  DefaultPollMaxAttempts,
		logger:       GetDefaultLogger(),
		recorder:     nopMetricsRecorder{},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// jobStatusPayload is the protocol shape of one poll response. The result
// field is opaque to the poller and passed through untouched.
type jobStatusPayload struct {
	Status     JobStatus       `json:"status"`
	Error      *string         `json:"error"`
	JSONResult json.RawMessage `json:"jsonResult"`
	Result     json.RawMessage `json:"result"`
}

func (p *jobStatusPayload) payload() json.RawMessage {
	if len(p.JSONResult) > 0 && string(p.JSONResult) != "null" {
		return p.JSONResult
	}
	if len(p.Result) > 0 && string(p.Result) != "null" {
		return p.Result
	}
	return nil
}

// Submit sends a job submission request and extracts the identifier of the
// created job.
func (p *JobPoller) Submit(ctx context.Context, spec JobSpec) (string, error) {
	p.nextID++
	req := NewJSONRPCRequest(p.nextID, spec.Method, spec.Params)
	resp, err := p.exchanger.Call(ctx, req)
	if err != nil {
		return "", &SubmissionError{Reason: "submission request failed", Err: err}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", &SubmissionError{Reason: "malformed submission result", Err: err}
	}
	idField := spec.IDField
	if idField == "" {
		idField = "jobId"
	}
	jobID, ok := result[idField].(string)
	if !ok || jobID == "" {
		return "", &SubmissionError{Reason: "missing job identifier", Err: interrors.ErrMissingJobID}
	}
	p.logger.Debugf("submitted job %s via %s", jobID, spec.Method)
	return jobID, nil
}

// errJobNotDone marks a poll that observed a non-terminal status.
var errJobNotDone = errors.New("job not in a terminal state")

// PollUntilDone polls the job status at the configured fixed interval until
// the job reaches a terminal state or the attempt budget is exhausted.
//
// A FAILED status returns a *JobFailedError carrying the remote error text;
// no further polls are issued. A SUCCESSFUL status returns the job's result
// payload. An exhausted budget returns a *JobTimeoutError, distinct from a
// job failure so callers can decide to retry with a larger budget.
func (p *JobPoller) PollUntilDone(ctx context.Context, jobID string) (json.RawMessage, error) {
	var (
		payload     json.RawMessage
		terminalErr error
	)
	retryErr := retry.Do(
		func() error {
			p.recorder.IncPollAttempts()
			status, err := p.pollOnce(ctx, jobID)
			if err != nil {
				// Transport and protocol failures are not retried; retry
				// policy beyond the designed poll loop belongs to the
				// caller.
				terminalErr = err
				return retry.Unrecoverable(err)
			}
			switch status.Status {
			case JobStatusFailed:
				message := "unknown error"
				if status.Error != nil {
					message = *status.Error
				}
				terminalErr = &JobFailedError{JobID: jobID, Message: message}
				return retry.Unrecoverable(terminalErr)
			case JobStatusSuccessful:
				payload = status.payload()
				return nil
			default:
				p.logger.Debugf("job %s status %s, waiting %s", jobID, status.Status, p.interval)
				return errJobNotDone
			}
		},
		retry.Attempts(uint(p.maxAttempts)),
		retry.Delay(p.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if retryErr == nil {
		return payload, nil
	}
	if terminalErr != nil {
		return nil, terminalErr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, &JobTimeoutError{JobID: jobID, Attempts: p.maxAttempts, Interval: p.interval}
}

// Run submits a job and polls it to completion.
func (p *JobPoller) Run(ctx context.Context, spec JobSpec) (json.RawMessage, error) {
	jobID, err := p.Submit(ctx, spec)
	if err != nil {
		return nil, err
	}
	return p.PollUntilDone(ctx, jobID)
}

func (p *JobPoller) pollOnce(ctx context.Context, jobID string) (*jobStatusPayload, error) {
	p.nextID++
	req := NewJSONRPCRequest(p.nextID, p.statusMethod, map[string]interface{}{
		p.statusParam: jobID,
	})
	resp, err := p.exchanger.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var status jobStatusPayload
	if err := json.Unmarshal(resp.Result, &status); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if status.Status == "" {
		return nil, &DecodeError{Err: interrors.ErrMissingJobStatus}
	}
	return &status, nil
}
