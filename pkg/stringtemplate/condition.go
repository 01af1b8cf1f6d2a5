package stringtemplate

import (
	"errors"
	"strings"
)

// ErrUnsupportedCondition is returned by TruthEvaluator for conditions that
// are not a single reference.
var ErrUnsupportedCondition = errors.New("unsupported condition")

// ConditionEvaluator decides {% if %} conditions.
type ConditionEvaluator interface {
	Evaluate(cond string, scope Scope) (bool, error)
}

// ConditionFunc adapts a function to ConditionEvaluator.
type ConditionFunc func(cond string, scope Scope) (bool, error)

func (f ConditionFunc) Evaluate(cond string, scope Scope) (bool, error) { return f(cond, scope) }

// TruthEvaluator is the default ConditionEvaluator. A condition is a single
// reference and holds when the referenced value is truthy: non-empty
// strings, non-zero numbers, true, non-empty lists and present stores.
// Absent values are false.
type TruthEvaluator struct{}

func (TruthEvaluator) Evaluate(cond string, scope Scope) (bool, error) {
	tokens := strings.Fields(cond)
	if len(tokens) != 1 {
		return false, ErrUnsupportedCondition
	}
	v, err := scope.Resolve(tokens[0])
	if err != nil {
		return false, err
	}
	return v.Truth(), nil
}
