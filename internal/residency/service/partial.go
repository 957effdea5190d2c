package service

import (
	"context"
	"fmt"
	"strings"

	"domio/internal/audit"
	dErrors "domio/pkg/domain-errors"
)

// PartialFailure reports a saga that committed some steps and then could not
// complete: the system is in a detectable, repairable inconsistent state.
// Callers must not retry the whole operation blindly; they should run the
// repair pass for the affected resident.
//
// Retrieve it with errors.As; the carrying error chain also answers
// dErrors.HasCode(err, dErrors.CodePartialFailure).
type PartialFailure struct {
	Operation string
	Completed []string
	Failed    string
	Cause     error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%s: step %q failed after [%s] committed: %v",
		e.Operation, e.Failed, strings.Join(e.Completed, ", "), e.Cause)
}

func (e *PartialFailure) Unwrap() error { return e.Cause }

// partialFailure builds the result, records the PARTIAL_FAILURE audit entry,
// and logs at error severity. The returned error carries CodePartialFailure.
func (s *Service) partialFailure(ctx context.Context, pf *PartialFailure, entity, entityID string) error {
	if s.metrics != nil {
		s.metrics.IncrementPartialFailure()
	}
	s.logError(ctx, "lifecycle operation partially failed",
		"operation", pf.Operation,
		"failed_step", pf.Failed,
		"completed_steps", strings.Join(pf.Completed, ","),
		"error", pf.Cause,
	)
	s.recorder.Record(ctx, audit.ActionPartialFailure, entity, entityID, audit.Data{
		audit.KeyFailedStep: pf.Failed,
		audit.KeyCompleted:  strings.Join(pf.Completed, ","),
	})
	return &dErrors.Error{
		Code:    dErrors.CodePartialFailure,
		Message: pf.Operation + " did not reach a consistent state",
		Err:     pf,
	}
}
