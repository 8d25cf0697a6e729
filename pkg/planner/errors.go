package planner

import (
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/pkg/errors"
)

var (
	ErrInsufficientFunctions = errors.New("unable to create plan for goal with available functions")
	ErrNoPlanFound           = errors.New("could not find the plan in the model output")
	ErrLoopsNotAllowed       = errors.New("plan uses loops but loops are not allowed")
	ErrPromptTooLong         = errors.New("create plan prompt exceeds the token budget")
)

// PlanCreationError is the one failure the planning loop recovers from. It
// carries the prompt that was sent to the model and whatever the model
// answered, so that the caller can show them.
type PlanCreationError struct {
	Message      string
	Err          error
	Prompt       string
	ModelResults *kernel.ChatMessageContent
}

func (e *PlanCreationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *PlanCreationError) Unwrap() error {
	return e.Err
}

// Details is the underlying error message, falling back to the error's own
// message when there is no cause.
func (e *PlanCreationError) Details() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// ModelContent is the raw model output, empty when the model was never
// reached.
func (e *PlanCreationError) ModelContent() string {
	if e.ModelResults == nil {
		return ""
	}
	return e.ModelResults.Content
}

// AsPlanCreationError reports whether err is, or wraps, a PlanCreationError.
func AsPlanCreationError(err error) (*PlanCreationError, bool) {
	var pce *PlanCreationError
	if errors.As(err, &pce) {
		return pce, true
	}
	return nil, false
}
