// Package conditions evaluates atomic comparisons and nested AND/OR groups
// against a flat map of field values. Evaluation is a pure function of its
// inputs: no hidden state, no I/O, and a field with no defined value makes
// the referencing condition unsatisfied instead of raising an error.
package conditions

import (
	"fmt"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
)

// Context carries the current bar's indicator and field values.
// A missing key means the field is undefined (e.g., still warming up).
type Context map[string]float64

// GroupResult reports the outcome of a group evaluation together with the
// leaf conditions that were satisfied while reaching it.
type GroupResult struct {
	Satisfied bool
	Matched   []string
}

// Compare applies a comparison operator. For OpRange the rng bounds are
// inclusive and threshold is ignored; for every other operator rng is ignored.
func Compare(op domain.Operator, value, threshold float64, rng *domain.Range) bool {
	switch op {
	case domain.OpGT:
		return value > threshold
	case domain.OpGTE:
		return value >= threshold
	case domain.OpLT:
		return value < threshold
	case domain.OpLTE:
		return value <= threshold
	case domain.OpEQ:
		return value == threshold
	case domain.OpNEQ:
		return value != threshold
	case domain.OpRange:
		if rng == nil {
			return false
		}
		return value >= rng.Min && value <= rng.Max
	default:
		return false
	}
}

// Evaluate resolves a single condition against the context. An undefined
// field is never an error; it simply does not satisfy the condition.
func Evaluate(cond domain.ConditionSpec, ctx Context) bool {
	value, ok := ctx[cond.Field]
	if !ok {
		return false
	}
	return Compare(cond.Operator, value, cond.Threshold, cond.Range)
}

// EvaluateGroup resolves a condition group. AND stops at the first
// unsatisfied member, OR stops at the first satisfied one; matched labels
// accumulate only for members actually evaluated.
func EvaluateGroup(group domain.ConditionGroup, ctx Context) GroupResult {
	res := GroupResult{Satisfied: group.Logic != domain.LogicOR}

	check := func(satisfied bool, label string) bool {
		if satisfied {
			res.Matched = append(res.Matched, label)
		}
		if group.Logic == domain.LogicOR {
			if satisfied {
				res.Satisfied = true
				return true
			}
			return false
		}
		if !satisfied {
			res.Satisfied = false
			return true
		}
		return false
	}

	for _, cond := range group.Conditions {
		if check(Evaluate(cond, ctx), conditionLabel(cond)) {
			return res
		}
	}
	for _, sub := range group.Groups {
		subRes := EvaluateGroup(sub, ctx)
		if subRes.Satisfied {
			res.Matched = append(res.Matched, subRes.Matched...)
		}
		stop := false
		if group.Logic == domain.LogicOR {
			if subRes.Satisfied {
				res.Satisfied = true
				stop = true
			}
		} else if !subRes.Satisfied {
			res.Satisfied = false
			stop = true
		}
		if stop {
			return res
		}
	}

	// An empty AND group is vacuously true; an empty OR group is false.
	return res
}

// ValidateGroup checks a condition group for structural errors before it is
// accepted from a strategy author. Malformed shapes are programmer errors.
func ValidateGroup(group domain.ConditionGroup) error {
	if group.Logic != domain.LogicAND && group.Logic != domain.LogicOR {
		return fmt.Errorf("%w: unknown logic mode %q", ports.ErrInvalidSpec, group.Logic)
	}
	for _, cond := range group.Conditions {
		if cond.Field == "" {
			return fmt.Errorf("%w: condition has empty field reference", ports.ErrInvalidSpec)
		}
		switch cond.Operator {
		case domain.OpGT, domain.OpGTE, domain.OpLT, domain.OpLTE, domain.OpEQ, domain.OpNEQ:
		case domain.OpRange:
			if cond.Range == nil {
				return fmt.Errorf("%w: range condition on %q has no bounds", ports.ErrInvalidSpec, cond.Field)
			}
			if cond.Range.Min > cond.Range.Max {
				return fmt.Errorf("%w: range condition on %q has min > max", ports.ErrInvalidSpec, cond.Field)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q on field %q", ports.ErrInvalidSpec, cond.Operator, cond.Field)
		}
	}
	for _, sub := range group.Groups {
		if err := ValidateGroup(sub); err != nil {
			return err
		}
	}
	return nil
}

func conditionLabel(cond domain.ConditionSpec) string {
	if cond.Operator == domain.OpRange && cond.Range != nil {
		return fmt.Sprintf("%s in [%g, %g]", cond.Field, cond.Range.Min, cond.Range.Max)
	}
	return fmt.Sprintf("%s %s %g", cond.Field, cond.Operator, cond.Threshold)
}
