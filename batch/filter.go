package batch

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// ErrInvalidFilter is returned for expressions that do not compile to a
// boolean predicate.
var ErrInvalidFilter = errors.New("invalid job filter")

// Selector keeps the jobs matching a CEL expression, for example
//
//	priority >= 2 && "promo" in tags
//
// Variables: id, prompt, model, duration, priority, tags, negative_prompt,
// image_url.
type Selector struct {
	Expression string
	program    cel.Program
}

// NewSelector compiles expression. An empty expression selects every job.
func NewSelector(expression string) (*Selector, error) {
	s := &Selector{Expression: expression}
	if expression == "" {
		return s, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("prompt", cel.StringType),
		cel.Variable("model", cel.StringType),
		cel.Variable("duration", cel.IntType),
		cel.Variable("priority", cel.IntType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("negative_prompt", cel.StringType),
		cel.Variable("image_url", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, issues.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression must be boolean, got %s", ErrInvalidFilter, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	s.program = prg
	return s, nil
}

// Match evaluates the expression against one job.
func (s *Selector) Match(job Job) (bool, error) {
	if s == nil || s.program == nil {
		return true, nil
	}
	tags := job.Tags
	if tags == nil {
		tags = []string{}
	}
	out, _, err := s.program.Eval(map[string]any{
		"id":              job.ID,
		"prompt":          job.Prompt,
		"model":           job.Model,
		"duration":        int64(job.Duration),
		"priority":        int64(job.Priority),
		"tags":            tags,
		"negative_prompt": job.NegativePrompt,
		"image_url":       job.ImageURL,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter for job %s: %w", job.ID, err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: job %s evaluated to %v", ErrInvalidFilter, job.ID, out.Value())
	}
	return v, nil
}

// Select returns the matching jobs in their original order.
func (s *Selector) Select(jobs []Job) ([]Job, error) {
	if s == nil || s.program == nil {
		return jobs, nil
	}
	selected := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		ok, err := s.Match(j)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, j)
		}
	}
	return selected, nil
}
