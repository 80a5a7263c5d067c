package fields

// FieldType classifies an entity field for condition and template handling.
type FieldType string

// Field types supplied by the entity catalog.
const (
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
	TypeInteger  FieldType = "integer"
	TypeDecimal  FieldType = "decimal"
	TypeFloat    FieldType = "float"
	TypeRelation FieldType = "relation"
	TypeChoice   FieldType = "choice"
	TypeText     FieldType = "text"
)

// Choice is one enumerated value/label pair on a field.
type Choice struct {
	Value string `json:"value"` // Raw stored value.
	Label string `json:"label"` // Display label.
}

// ModelField is read-only field metadata owned by the entity layer.
type ModelField struct {
	Name         string    `json:"name"`                    // Field name.
	VerboseName  string    `json:"verbose_name"`            // Human-readable name.
	Type         FieldType `json:"type"`                    // Field type.
	Choices      []Choice  `json:"choices,omitempty"`       // Enumerated choices, when present.
	IsRelation   bool      `json:"is_relation"`             // Whether the field links to another model.
	RelatedModel string    `json:"related_model,omitempty"` // Target model key for relations.
}

// HasChoices reports whether the field carries an enumerated choice set.
func (f ModelField) HasChoices() bool {
	return len(f.Choices) > 0
}

// ChoiceLabel returns the display label for a raw choice value, or the raw
// value itself when no choice matches.
func (f ModelField) ChoiceLabel(value string) string {
	for _, c := range f.Choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

// IsNumeric reports whether the field type orders numerically.
func (t FieldType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDecimal || t == TypeFloat
}

// IsTemporal reports whether the field type orders chronologically.
func (t FieldType) IsTemporal() bool {
	return t == TypeDate || t == TypeDatetime
}

// Operator is a condition comparison operator.
type Operator string

// Condition operators.
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// OperatorsForField derives the legal operator set from field metadata. The
// same lookup backs the authoring API and the evaluator so a rule can never
// carry an operator the evaluator will not honor.
func OperatorsForField(f ModelField) []Operator {
	switch {
	case f.Type == TypeBoolean:
		return []Operator{OpEquals, OpNotEquals}
	case f.HasChoices():
		return []Operator{OpEquals, OpNotEquals, OpIn, OpNotIn}
	case f.Type.IsTemporal() || f.Type.IsNumeric():
		return []Operator{OpEquals, OpNotEquals, OpGt, OpGte, OpLt, OpLte, OpIsEmpty, OpIsNotEmpty}
	default:
		return []Operator{OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsEmpty, OpIsNotEmpty}
	}
}

// OperatorAllowed reports whether op is legal for the field.
func OperatorAllowed(f ModelField, op Operator) bool {
	for _, allowed := range OperatorsForField(f) {
		if allowed == op {
			return true
		}
	}
	return false
}

// ByName indexes a field list by field name.
func ByName(list []ModelField) map[string]ModelField {
	out := make(map[string]ModelField, len(list))
	for _, f := range list {
		out[f.Name] = f
	}
	return out
}
