package reactable

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError reports a failed content expression with the engine, the
// source and, for table content, the column it was rendered for.
type EvaluationError struct {
	Engine string
	Expr   string
	Column string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "reactable: %s evaluator", e.Engine)
	if e.Column != "" {
		fmt.Fprintf(&b, " column=%q", e.Column)
	}
	if e.Expr == "" {
		b.WriteString(" expr=<empty>")
	} else {
		fmt.Fprintf(&b, " expr=%q", e.Expr)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluatorError prefixes errors that are not tied to one expression.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "reactable:") {
		return err
	}
	return fmt.Errorf("reactable: %s evaluator: %w", engine, err)
}

// wrapEvaluationError returns err as an EvaluationError, filling the fields
// an existing one is missing.
func wrapEvaluationError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	return evalErr
}

// withColumn records the column named by props ("column" in PropsMap) on an
// EvaluationError.
func withColumn(err error, props any) error {
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Column != "" {
		return err
	}
	var fields map[string]any
	switch p := props.(type) {
	case PropsMapper:
		fields = p.PropsMap()
	case map[string]any:
		fields = p
	}
	if column, ok := fields["column"].(string); ok {
		evalErr.Column = column
	}
	return err
}
