package orchestrator

import (
	"sync"

	"github.com/shaiso/Cascade/internal/domain"
)

// recorder — Reporter одного запуска runner'а.
//
// После seal вызовы игнорируются: runner мог передать Reporter
// в горутину, пережившую его возврат.
type recorder struct {
	mu       sync.Mutex
	status   domain.ActionStatus
	workflow *domain.WorkflowStatus
	sealed   bool
}

func newRecorder() *recorder {
	return &recorder{status: domain.ActionStatusSuccess}
}

// SetStatus реализует Reporter.
func (r *recorder) SetStatus(status domain.ActionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		r.status = status
	}
}

// SetWorkflowStatus реализует Reporter.
func (r *recorder) SetWorkflowStatus(status domain.WorkflowStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		r.workflow = &status
	}
}

// seal фиксирует сообщённые значения.
func (r *recorder) seal() (domain.ActionStatus, *domain.WorkflowStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	return r.status, r.workflow
}
