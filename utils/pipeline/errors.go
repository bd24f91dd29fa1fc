package pipeline

import (
	"errors"
	"fmt"

	"github.com/mouncefik/nbgen/utils/models"
	"github.com/mouncefik/nbgen/utils/notebook"
)

// ErrNoModel is returned when no model name was supplied
var ErrNoModel = errors.New("configuration missing model name")

// MissingInputError reports a required input file that does not exist or
// cannot be accessed
type MissingInputError struct {
	Role string
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Role, e.Path)
}

func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// InputError reports an input file that exists but could not be processed
type InputError struct {
	Role string
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("failed to process %s input %s: %v", e.Role, e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Stage names a step of the generation pipeline
type Stage string

const (
	StageInputs     Stage = "inputs"
	StagePrompt     Stage = "prompt"
	StageCompletion Stage = "completion"
	StageNotebook   Stage = "notebook"
)

var stageMessages = map[Stage]string{
	StageInputs:     "failed to process input files",
	StagePrompt:     "failed to build prompt",
	StageCompletion: "failed to get response from AI",
	StageNotebook:   "failed to construct notebook from AI response",
}

// Error wraps a failure with the stage that produced it
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", stageMessages[e.Stage], e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Class groups failures by what the user can do about them
type Class int

const (
	ClassInternal Class = iota
	ClassInput
	ClassCredentials
	ClassRetryLater
)

func (c Class) String() string {
	switch c {
	case ClassInput:
		return "input"
	case ClassCredentials:
		return "credentials"
	case ClassRetryLater:
		return "retry_later"
	}
	return "internal"
}

// Guidance is the hint shown to the user next to the error
func (c Class) Guidance() string {
	switch c {
	case ClassInput:
		return "Check your input files and goal, then try again."
	case ClassCredentials:
		return "Check your API key and model name."
	case ClassRetryLater:
		return "The model service is unavailable or returned an unusable answer. Try again later."
	}
	return "An unexpected error occurred. Check the logs for details."
}

// Classify maps a pipeline error to its class
func Classify(err error) Class {
	if err == nil {
		return ClassInternal
	}

	var missing *MissingInputError
	var bad *InputError
	if errors.As(err, &missing) || errors.As(err, &bad) {
		return ClassInput
	}
	if errors.Is(err, ErrNoModel) {
		return ClassCredentials
	}
	if errors.Is(err, notebook.ErrEmptyInput) || errors.Is(err, notebook.ErrNoContent) {
		return ClassRetryLater
	}

	var classified *models.Error
	if !errors.As(err, &classified) {
		return ClassInternal
	}
	switch classified.Kind {
	case models.KindConfiguration, models.KindClientSetup, models.KindAuth, models.KindNotFound:
		return ClassCredentials
	case models.KindContentBlocked, models.KindInvalidArgument:
		return ClassInput
	case models.KindRetryBudgetExceeded, models.KindTransient, models.KindEmptyResponse:
		return ClassRetryLater
	}
	return ClassInternal
}
