package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseActionStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ActionStatus
	}{
		{"success", ActionStatusSuccess},
		{"OK", ActionStatusSuccess},
		{"fail", ActionStatusFailure},
		{"canceled", ActionStatusCancelled},
		{" skip ", ActionStatusSkipped},
		{"*", ActionStatusAny},
	}
	for _, tt := range tests {
		got, err := ParseActionStatus(tt.in)
		if err != nil {
			t.Errorf("ParseActionStatus(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseActionStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseActionStatus("done"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := ParseWorkflowStatus("skipped"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("skipped is not a workflow status, got %v", err)
	}
}

func TestStatusMatches(t *testing.T) {
	if !ActionStatusAny.Matches(ActionStatusCancelled) {
		t.Error("any should match cancelled")
	}
	if ActionStatusSuccess.Matches(ActionStatusSkipped) {
		t.Error("success should not match skipped")
	}
	if ActionStatusAny.IsOutcome() {
		t.Error("any is not an outcome")
	}
	if !WorkflowStatusAny.Matches(WorkflowStatusFailure) {
		t.Error("workflow any should match failure")
	}
	if WorkflowStatusAny.IsOutcome() {
		t.Error("workflow any is not an outcome")
	}
}

func TestDependency_JSONRoundTrip(t *testing.T) {
	deps := []Dependency{
		Needs("build"),
		NeedsWith("test", ActionStatusFailure),
		NeedsWith("lint", ActionStatusAny),
	}

	data, err := json.Marshal(deps)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["build",{"action":"test","with":"failure"},{"action":"lint","with":"any"}]` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var back []Dependency
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for i := range deps {
		if back[i] != deps[i] {
			t.Errorf("dep %d = %+v, want %+v", i, back[i], deps[i])
		}
	}

	var bad Dependency
	if err := json.Unmarshal([]byte(`{"action":"a","with":"maybe"}`), &bad); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestPipelineSpec_JSONAfterYAML(t *testing.T) {
	var spec PipelineSpec
	err := yaml.Unmarshal([]byte(`
name: release
actions:
  build: {type: echo}
  deploy:
    type: echo
    needs: [build]
    needsAnyOf: [{action: build, with: fail}]
    needsWorkflow: ok
`), &spec)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}

	data, err := json.Marshal(&spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back PipelineSpec
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	deploy, ok := back.Action("deploy")
	if !ok {
		t.Fatal("deploy not found")
	}
	if deploy.Needs[0] != Needs("build") {
		t.Errorf("needs = %+v", deploy.Needs)
	}
	if deploy.NeedsAnyOf[0] != NeedsWith("build", ActionStatusFailure) {
		t.Errorf("needsAnyOf = %+v", deploy.NeedsAnyOf)
	}
	if deploy.NeedsWorkflow == nil || *deploy.NeedsWorkflow != WorkflowStatusSuccess {
		t.Errorf("needsWorkflow = %v", deploy.NeedsWorkflow)
	}
}

func TestRunLifecycle(t *testing.T) {
	run := NewRun("release", map[string]any{"channel": "beta"}, TriggerAPI)
	if run.Status != RunStatusPending || run.IsFinished() {
		t.Fatalf("new run should be pending, got %s", run.Status)
	}
	if run.Duration() != 0 {
		t.Error("unfinished run should have zero duration")
	}

	run.MarkRunning()
	run.MarkSucceeded(WorkflowStatusFailure)
	if !run.IsFinished() || run.WorkflowStatus != WorkflowStatusFailure {
		t.Errorf("unexpected run state: %+v", run)
	}

	failed := NewRun("release", nil, TriggerManual)
	failed.MarkRunning()
	failed.MarkFailed("boom")
	if failed.Status != RunStatusFailed || failed.Error != "boom" {
		t.Errorf("unexpected failed run: %+v", failed)
	}
}

func TestSchedule_IsDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &Schedule{Name: "nightly", CronExpr: "0 9 * * *"}

	if s.IsDue(now) {
		t.Error("schedule without NextDueAt is not due")
	}

	s.NextDueAt = &now
	if !s.IsDue(now) {
		t.Error("schedule should be due at NextDueAt")
	}

	s.Disabled = true
	if s.IsDue(now) {
		t.Error("disabled schedule is never due")
	}

	if !s.IsCron() || s.IsInterval() {
		t.Error("cron schedule detection failed")
	}
}
