package condition

import (
	"encoding/json"
	"strings"

	"github.com/recruitflow/automation/internal/fields"
)

// Condition is one field/operator/value predicate on a rule.
type Condition struct {
	Field    string          `json:"field"`           // Entity field name.
	Operator fields.Operator `json:"operator"`        // Comparison operator.
	Value    any             `json:"value,omitempty"` // Scalar, or list for in/not_in.
}

// Decode parses the JSON condition list stored on a rule.
func Decode(raw []byte) ([]Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []Condition
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateAll reports whether every condition holds against the snapshot.
// Conditions are AND-ed; an empty list always matches. A condition whose
// field is unknown, or whose operator is illegal for the field's current
// type, evaluates to false so stale configuration can never fire a rule.
func EvaluateAll(conds []Condition, catalog map[string]fields.ModelField, snapshot map[string]any) bool {
	for _, c := range conds {
		if !Evaluate(c, catalog, snapshot) {
			return false
		}
	}
	return true
}

// Evaluate applies a single condition against the snapshot.
func Evaluate(c Condition, catalog map[string]fields.ModelField, snapshot map[string]any) bool {
	field, ok := catalog[c.Field]
	if !ok {
		return false
	}
	if !fields.OperatorAllowed(field, c.Operator) {
		return false
	}
	value := snapshot[c.Field]

	switch c.Operator {
	case fields.OpIsEmpty:
		return isEmpty(value)
	case fields.OpIsNotEmpty:
		return !isEmpty(value)
	case fields.OpEquals:
		return equals(field, value, c.Value)
	case fields.OpNotEquals:
		return !equals(field, value, c.Value)
	case fields.OpContains, fields.OpNotContains:
		got := strings.Contains(
			strings.ToLower(asString(value)),
			strings.ToLower(asString(c.Value)),
		)
		if c.Operator == fields.OpNotContains {
			return !got
		}
		return got
	case fields.OpGt, fields.OpGte, fields.OpLt, fields.OpLte:
		return ordered(field, c.Operator, value, c.Value)
	case fields.OpIn, fields.OpNotIn:
		list, ok := asList(c.Value)
		if !ok {
			return false
		}
		got := false
		for _, item := range list {
			if equals(field, value, item) {
				got = true
				break
			}
		}
		if c.Operator == fields.OpNotIn {
			return !got
		}
		return got
	default:
		return false
	}
}

// equals compares by the field's natural value domain: numerics by value,
// booleans by truth, temporals by instant, choices by raw choice value and
// text case-sensitively.
func equals(field fields.ModelField, left, right any) bool {
	if field.Type == fields.TypeBoolean {
		lb, lok := asBool(left)
		rb, rok := asBool(right)
		return lok && rok && lb == rb
	}
	if field.Type.IsNumeric() {
		lf, lok := asFloat(left)
		rf, rok := asFloat(right)
		return lok && rok && lf == rf
	}
	if field.Type.IsTemporal() {
		lt, lok := asTime(left)
		rt, rok := asTime(right)
		return lok && rok && lt.Equal(rt)
	}
	return asString(left) == asString(right)
}

func ordered(field fields.ModelField, op fields.Operator, left, right any) bool {
	if field.Type.IsTemporal() {
		lt, lok := asTime(left)
		rt, rok := asTime(right)
		if !lok || !rok {
			return false
		}
		switch op {
		case fields.OpGt:
			return lt.After(rt)
		case fields.OpGte:
			return lt.After(rt) || lt.Equal(rt)
		case fields.OpLt:
			return lt.Before(rt)
		case fields.OpLte:
			return lt.Before(rt) || lt.Equal(rt)
		}
		return false
	}
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return false
	}
	switch op {
	case fields.OpGt:
		return lf > rf
	case fields.OpGte:
		return lf >= rf
	case fields.OpLt:
		return lf < rf
	case fields.OpLte:
		return lf <= rf
	}
	return false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
