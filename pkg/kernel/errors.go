package kernel

import "github.com/pkg/errors"

var ErrNoChatCompletionService = errors.New("no chat completion service registered with the kernel")

var ErrPluginNotFound = errors.New("plugin not found")

var ErrFunctionNotFound = errors.New("function not found")

var ErrDuplicatePlugin = errors.New("plugin already registered")

// MissingArgumentError is returned when a required input variable has
// neither a value nor a default.
type MissingArgumentError struct {
	Function string
	Name     string
}

func (e *MissingArgumentError) Error() string {
	return "missing required argument " + e.Name + " for function " + e.Function
}
