package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown job or batch in a tenant.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a job whose id is taken.
	ErrAlreadyExists = errors.New("job already exists")

	// ErrDuplicateOperation matches every *DuplicateOperationError.
	ErrDuplicateOperation = errors.New("operation already in progress for subject")

	// ErrTerminalState is returned when updating a completed or failed job.
	ErrTerminalState = errors.New("job is in a terminal state")

	// ErrInvalidTransition is returned for a status change the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrUnknownState is returned by Reporter when a job state write keeps
	// failing. The job's stored state may be stale.
	ErrUnknownState = errors.New("job state unknown")
)

// DuplicateOperationError reports a rejected job because another active job
// already holds its subject.
type DuplicateOperationError struct {
	TenantID  string
	SubjectID string

	// JobID and Status identify the operation in progress.
	JobID     string
	Operation string
	Status    Status
}

// Error implements the error interface.
func (e *DuplicateOperationError) Error() string {
	op := e.Operation
	if op == "" {
		op = "job"
	}
	return fmt.Sprintf("subject %s of tenant %s is busy: %s %s is %s",
		e.SubjectID, e.TenantID, op, e.JobID, e.Status)
}

// Is makes errors.Is(err, ErrDuplicateOperation) match.
func (e *DuplicateOperationError) Is(target error) bool {
	return target == ErrDuplicateOperation
}
