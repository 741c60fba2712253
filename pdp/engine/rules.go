// api/pdp/engine/rules.go
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
	pdp_model "github.com/lumenhr/aegis/api/pdp/model"
)

// EvaluationInput bundles the attribute maps one request evaluates against.
type EvaluationInput struct {
	Subject     map[string]any
	Resource    map[string]any
	Environment map[string]any
	Action      string
}

// EvaluateRule interprets one policy rule against the input. Evaluation never
// errors: unknown categories, unresolvable paths and malformed comparisons
// all make the rule false.
func EvaluateRule(rule model.PolicyRule, input *EvaluationInput) bool {
	var attrs map[string]any
	switch rule.AttributeCategory {
	case model.CategorySubject:
		attrs = input.Subject
	case model.CategoryResource:
		attrs = input.Resource
	case model.CategoryEnvironment:
		attrs = input.Environment
	default:
		return false
	}

	value, ok := resolvePath(attrs, rule.AttributePath)
	if !ok {
		return false
	}

	result := applyOperator(rule.Operator, value, rule.Value)
	if rule.Negate {
		return !result
	}
	return result
}

// resolvePath walks a dotted path through nested attribute maps. Computed
// values are invoked where they occur, so lazily derived attributes traverse
// like plain ones.
func resolvePath(root map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		if computed, ok := current.(pdp_model.Computed); ok {
			current = computed()
		}
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = value
		case map[string]string:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = value
		default:
			return nil, false
		}
	}
	if computed, ok := current.(pdp_model.Computed); ok {
		current = computed()
	}
	return current, true
}

func applyOperator(operator string, resolved, expected any) bool {
	switch operator {
	case model.OpEquals:
		return looseEqual(resolved, expected)
	case model.OpNotEquals:
		return !looseEqual(resolved, expected)
	case model.OpGreater:
		cmp, ok := compareOrdered(resolved, expected)
		return ok && cmp > 0
	case model.OpGreaterEq:
		cmp, ok := compareOrdered(resolved, expected)
		return ok && cmp >= 0
	case model.OpLess:
		cmp, ok := compareOrdered(resolved, expected)
		return ok && cmp < 0
	case model.OpLessEq:
		cmp, ok := compareOrdered(resolved, expected)
		return ok && cmp <= 0
	case model.OpIn:
		member, ok := memberOf(resolved, expected)
		return ok && member
	case model.OpNotIn:
		member, ok := memberOf(resolved, expected)
		return ok && !member
	case model.OpContains:
		return strings.Contains(textForm(resolved), textForm(expected))
	case model.OpNotContains:
		return !strings.Contains(textForm(resolved), textForm(expected))
	case model.OpStartsWith:
		return strings.HasPrefix(textForm(resolved), textForm(expected))
	case model.OpEndsWith:
		return strings.HasSuffix(textForm(resolved), textForm(expected))
	case model.OpRegex:
		pattern, err := regexp.Compile(textForm(expected))
		if err != nil {
			return false
		}
		return pattern.MatchString(textForm(resolved))
	default:
		logger.Warn("Unknown rule operator", zap.String("operator", operator))
		return false
	}
}

// looseEqual compares across the value shapes attribute maps and JSON rule
// values produce: numerics compare numerically, booleans as booleans,
// everything else by text form.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}
	return textForm(a) == textForm(b)
}

// compareOrdered returns the sign of a compared to b. Numerics win, then
// timestamps, then plain string ordering. Other type pairings have no
// ordering, which makes the rule false.
func compareOrdered(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
}

func memberOf(needle, haystack any) (bool, bool) {
	switch list := haystack.(type) {
	case []any:
		for _, item := range list {
			if looseEqual(needle, item) {
				return true, true
			}
		}
		return false, true
	case []string:
		for _, item := range list {
			if looseEqual(needle, item) {
				return true, true
			}
		}
		return false, true
	default:
		return false, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timeLayouts = []string{time.RFC3339, "2006-01-02", "15:04:05"}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func textForm(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
