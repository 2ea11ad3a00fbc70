package domain

import (
	"fmt"
	"time"
)

// ActionStatus is the outcome of a best-effort step.
type ActionStatus string

const (
	ActionOK     ActionStatus = "ok"
	ActionFailed ActionStatus = "failed"
)

// Best-effort action names recorded in a RunReport.
const (
	ActionUnpin        = "unpin"
	ActionPin          = "pin"
	ActionDelete       = "delete"
	ActionEdit         = "edit"
	ActionReadCommands = "read_commands"
	ActionGeocode      = "geocode"
	ActionPublish      = "publish"
)

// ActionResult records a single best-effort step. A failed result never
// aborts the run.
type ActionResult struct {
	Action string       `json:"action"`
	Target string       `json:"target,omitempty"`
	Status ActionStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// Ok builds a successful ActionResult.
func Ok(action, target string) ActionResult {
	return ActionResult{Action: action, Target: target, Status: ActionOK}
}

// Failed builds a failed ActionResult from err.
func Failed(action, target string, err error) ActionResult {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return ActionResult{Action: action, Target: target, Status: ActionFailed, Reason: reason}
}

// Result converts an error from a best-effort call into an ActionResult.
func Result(action, target string, err error) ActionResult {
	if err != nil {
		return Failed(action, target, err)
	}
	return Ok(action, target)
}

func (a ActionResult) String() string {
	if a.Status == ActionFailed {
		return fmt.Sprintf("%s %s: failed: %s", a.Action, a.Target, a.Reason)
	}
	return fmt.Sprintf("%s %s: ok", a.Action, a.Target)
}

// RunReport summarizes one run.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Cyclones int      `json:"cyclones"`
	Updated  []string `json:"updated"`
	Tracked  []string `json:"tracked"`

	BroadcastMessageIDs []string `json:"broadcast_message_ids,omitempty"`
	DigestMessageID     string   `json:"digest_message_id,omitempty"`
	DigestPosted        bool     `json:"digest_posted"`

	Actions []ActionResult `json:"actions"`
	Error   string         `json:"error,omitempty"`
}

// Record appends a best-effort action outcome.
func (r *RunReport) Record(a ActionResult) {
	r.Actions = append(r.Actions, a)
}

// Failures returns the failed best-effort actions.
func (r *RunReport) Failures() []ActionResult {
	var failed []ActionResult
	for _, a := range r.Actions {
		if a.Status == ActionFailed {
			failed = append(failed, a)
		}
	}
	return failed
}

// Succeeded reports whether the run completed without a hard failure.
func (r *RunReport) Succeeded() bool {
	return r.Error == ""
}
