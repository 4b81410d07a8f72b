package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phrazzld/focus-api/internal/platform/gemini"
	"github.com/phrazzld/focus-api/internal/resource"
	"github.com/phrazzld/focus-api/internal/task"
)

// Operation types accepted by the Dispatcher.
const (
	OpVideoProcessing    = "video_processing"
	OpTextProcessing     = "text_processing"
	OpQuestionGeneration = "question_generation"
)

// Handler builds the unit of work for one request. Build validates the
// content synchronously; the returned work runs later under the scheduler.
type Handler interface {
	Build(content json.RawMessage) (task.UnitOfWork, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(content json.RawMessage) (task.UnitOfWork, error)

// Build calls f(content).
func (f HandlerFunc) Build(content json.RawMessage) (task.UnitOfWork, error) {
	return f(content)
}

// Operation binds a request type to its static requirement and handler.
type Operation struct {
	Type        string
	Requirement resource.Requirement
	Handler     Handler
}

// Table maps request types to operations.
type Table map[string]Operation

// NewTable builds a Table, rejecting duplicate types and invalid requirements.
func NewTable(ops ...Operation) (Table, error) {
	t := make(Table, len(ops))
	for _, op := range ops {
		if op.Type == "" || op.Handler == nil {
			return nil, fmt.Errorf("operation %q: type and handler are required", op.Type)
		}
		if _, dup := t[op.Type]; dup {
			return nil, fmt.Errorf("operation %q registered twice", op.Type)
		}
		if err := op.Requirement.Validate(); err != nil {
			return nil, fmt.Errorf("operation %q: %w", op.Type, err)
		}
		op.Requirement = op.Requirement.Clone()
		t[op.Type] = op
	}
	return t, nil
}

// Lookup returns the operation registered for opType.
func (t Table) Lookup(opType string) (Operation, bool) {
	op, ok := t[opType]
	return op, ok
}

// Collaborator performs the model calls behind the default operations.
// *gemini.Processor implements it.
type Collaborator interface {
	Validate(input interface{}) error
	SimplifyText(ctx context.Context, in gemini.SimplifyInput) (*gemini.SimplifiedText, error)
	GenerateQuestions(ctx context.Context, in gemini.QuestionsInput) (*gemini.QuestionSet, error)
	SummarizeVideo(ctx context.Context, in gemini.VideoInput) (*gemini.VideoSummary, error)
}

// DefaultTable returns the standard operations backed by c.
func DefaultTable(c Collaborator) Table {
	t, err := NewTable(
		Operation{
			Type:        OpVideoProcessing,
			Requirement: resource.Requirement{resource.CPU: 30, resource.GPU: 50, resource.Memory: 1024},
			Handler: collaboratorHandler(c, func(ctx context.Context, in gemini.VideoInput) (interface{}, error) {
				return c.SummarizeVideo(ctx, in)
			}),
		},
		Operation{
			Type:        OpTextProcessing,
			Requirement: resource.Requirement{resource.CPU: 20, resource.Memory: 768},
			Handler: collaboratorHandler(c, func(ctx context.Context, in gemini.SimplifyInput) (interface{}, error) {
				return c.SimplifyText(ctx, in)
			}),
		},
		Operation{
			Type:        OpQuestionGeneration,
			Requirement: resource.Requirement{resource.CPU: 20, resource.Memory: 512},
			Handler: collaboratorHandler(c, func(ctx context.Context, in gemini.QuestionsInput) (interface{}, error) {
				return c.GenerateQuestions(ctx, in)
			}),
		},
	)
	if err != nil {
		panic(fmt.Sprintf("default operation table: %v", err))
	}
	return t
}

// collaboratorHandler decodes and validates content into In at build time and
// defers the call itself to the unit of work.
func collaboratorHandler[In any](c Collaborator, call func(context.Context, In) (interface{}, error)) Handler {
	return HandlerFunc(func(content json.RawMessage) (task.UnitOfWork, error) {
		var in In
		if len(content) == 0 {
			return nil, fmt.Errorf("%w: content is required", ErrValidation)
		}
		if err := json.Unmarshal(content, &in); err != nil {
			return nil, fmt.Errorf("%w: malformed content: %v", ErrValidation, err)
		}
		if err := c.Validate(in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}

		return task.WorkFunc(func(ctx context.Context) (json.RawMessage, error) {
			out, err := call(ctx, in)
			if err != nil {
				return nil, err
			}
			encoded, err := json.Marshal(out)
			if err != nil {
				return nil, fmt.Errorf("encoding result: %w", err)
			}
			return encoded, nil
		}), nil
	})
}

// Errors returned by the Dispatcher.
var (
	// ErrValidation marks requests rejected before anything was created.
	ErrValidation = errors.New("validation error")

	// ErrUnknownOperation is wrapped with ErrValidation for unknown request types.
	ErrUnknownOperation = errors.New("unknown operation type")
)
