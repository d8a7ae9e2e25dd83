package engine

import (
	"strings"

	"github.com/spf13/cast"
)

// Branch results a conditionalFlow node can steer execution towards.
const (
	branchTrue    = "true"
	branchFalse   = "false"
	branchDefault = "default"
)

// evaluateCondition compares input against compare using the given
// condition type and returns the branch to follow. Branching must never
// abort a run: an unrecognized condition type or a comparison that
// cannot be performed resolves to the "default" branch.
func evaluateCondition(conditionType string, input, compare any) string {
	switch conditionType {
	case "equals":
		return boolBranch(cast.ToString(input) == cast.ToString(compare))
	case "notEquals":
		return boolBranch(cast.ToString(input) != cast.ToString(compare))
	case "contains":
		return boolBranch(strings.Contains(cast.ToString(input), cast.ToString(compare)))
	case "notContains":
		return boolBranch(!strings.Contains(cast.ToString(input), cast.ToString(compare)))
	case "startsWith":
		return boolBranch(strings.HasPrefix(cast.ToString(input), cast.ToString(compare)))
	case "endsWith":
		return boolBranch(strings.HasSuffix(cast.ToString(input), cast.ToString(compare)))
	case "greaterThan":
		return numericBranch(input, compare, func(a, b float64) bool { return a > b })
	case "lessThan":
		return numericBranch(input, compare, func(a, b float64) bool { return a < b })
	case "greaterOrEqual":
		return numericBranch(input, compare, func(a, b float64) bool { return a >= b })
	case "lessOrEqual":
		return numericBranch(input, compare, func(a, b float64) bool { return a <= b })
	case "isEmpty":
		return boolBranch(isEmptyValue(input))
	case "isNotEmpty":
		return boolBranch(!isEmptyValue(input))
	case "isTrue":
		b, err := cast.ToBoolE(input)
		if err != nil {
			return branchDefault
		}
		return boolBranch(b)
	case "isFalse":
		b, err := cast.ToBoolE(input)
		if err != nil {
			return branchDefault
		}
		return boolBranch(!b)
	}
	return branchDefault
}

func boolBranch(b bool) string {
	if b {
		return branchTrue
	}
	return branchFalse
}

func numericBranch(input, compare any, cmp func(a, b float64) bool) string {
	a, err := cast.ToFloat64E(input)
	if err != nil {
		return branchDefault
	}
	b, err := cast.ToFloat64E(compare)
	if err != nil {
		return branchDefault
	}
	return boolBranch(cmp(a, b))
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return cast.ToString(v) == ""
}
