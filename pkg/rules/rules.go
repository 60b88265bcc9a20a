// Package rules evaluates the CEL expressions fields may declare as an
// extra validation rule (eval.rule). Expressions see the submitted value as
// `value`, the field name as `field` and the active record as `record`, and
// must return a bool.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// ErrOutputType reports an expression that does not evaluate to bool.
var ErrOutputType = errors.New("rules: expression output type mismatch")

// Input is the activation passed to an expression.
type Input struct {
	Field  string
	Value  any
	Record map[string]any
}

// Engine compiles expressions once and caches the programs.
type Engine struct {
	once     sync.Once
	env      *cel.Env
	envErr   error
	programs sync.Map
}

// NewEngine returns an engine with an empty program cache.
func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) environment() (*cel.Env, error) {
	e.once.Do(func() {
		e.env, e.envErr = cel.NewEnv(
			cel.Variable("field", cel.StringType),
			cel.Variable("value", cel.DynType),
			cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return e.env, e.envErr
}

// Compile checks expr and stores the program for later evaluations.
func (e *Engine) Compile(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("rules: expression required")
	}
	if cached, ok := e.programs.Load(expr); ok {
		return cached.(cel.Program), nil
	}

	env, err := e.environment()
	if err != nil {
		return nil, fmt.Errorf("rules: environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rules: compile %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q returns %s", ErrOutputType, expr, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rules: program %q: %w", expr, err)
	}
	e.programs.Store(expr, program)
	return program, nil
}

// Eval runs expr against in.
func (e *Engine) Eval(expr string, in Input) (bool, error) {
	program, err := e.Compile(expr)
	if err != nil {
		return false, err
	}
	record := in.Record
	if record == nil {
		record = map[string]any{}
	}
	out, _, err := program.Eval(map[string]any{
		"field":  in.Field,
		"value":  in.Value,
		"record": record,
	})
	if err != nil {
		return false, fmt.Errorf("rules: eval %q: %w", expr, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("%w: %q", ErrOutputType, expr)
	}
	return ok, nil
}
