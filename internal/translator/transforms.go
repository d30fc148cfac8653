package translator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// applyTransform dispatches on TransformKind via a closed switch —
// an unrecognized kind is a hard error, never a silent pass-through
// (§4.3: "fail-closed on unknown"), the same exhaustive-switch
// idiom used elsewhere in this codebase for enumerated policy kinds.
func applyTransform(t Transform, value any, lookup func(table string, key any) (any, bool)) (any, error) {
	switch t.Kind {
	case TransformLookup:
		if lookup == nil {
			return nil, fmt.Errorf("translator: lookup transform requires a lookup table provider")
		}
		resolved, ok := lookup(t.Table, value)
		if !ok {
			return nil, nil
		}
		return resolved, nil
	case TransformToString:
		return toStringValue(value), nil
	case TransformToNumber:
		return toNumberValue(value), nil
	case TransformToBoolean:
		return toBooleanValue(value), nil
	default:
		return nil, fmt.Errorf("translator: unknown transform kind %q", t.Kind)
	}
}

func toStringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toNumberValue returns a float64 or nil (§4.3: "NaN → null").
func toNumberValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(v) {
			return nil
		}
		return v
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) {
			return nil
		}
		return n
	default:
		return nil
	}
}

// toBooleanValue implements §4.3's exact truth table:
// "true"/"yes"/"1" → true; "false"/"no"/"0"/"" → false; else Boolean(value).
func toBooleanValue(value any) bool {
	if s, ok := value.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0", "":
			return false
		}
	}
	return isTruthy(value)
}

// isTruthy mirrors JavaScript's Boolean(value) coercion for the non-string
// fallback case §4.3 names explicitly.
func isTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	default:
		return true
	}
}
