package condition

import (
	"testing"

	"github.com/recruitflow/automation/internal/fields"
)

func jobCatalog() map[string]fields.ModelField {
	return fields.ByName([]fields.ModelField{
		{Name: "title", Type: fields.TypeText},
		{Name: "salary", Type: fields.TypeInteger},
		{Name: "is_remote", Type: fields.TypeBoolean},
		{Name: "deadline", Type: fields.TypeDate},
		{Name: "stage", Type: fields.TypeText, Choices: []fields.Choice{
			{Value: "screening", Label: "Screening"},
			{Value: "interview", Label: "Interview"},
			{Value: "offer", Label: "Offer"},
		}},
	})
}

func TestEvaluateAllEmptyListMatches(t *testing.T) {
	if !EvaluateAll(nil, jobCatalog(), map[string]any{"title": "Engineer"}) {
		t.Fatal("empty condition list should match")
	}
}

func TestEvaluateAllIsConjunctive(t *testing.T) {
	snapshot := map[string]any{"title": "Engineer", "salary": float64(90000)}
	conds := []Condition{
		{Field: "title", Operator: fields.OpEquals, Value: "Engineer"},
		{Field: "salary", Operator: fields.OpGt, Value: float64(100000)},
	}
	if EvaluateAll(conds, jobCatalog(), snapshot) {
		t.Fatal("one failing condition should fail the set")
	}
	conds[1].Value = float64(50000)
	if !EvaluateAll(conds, jobCatalog(), snapshot) {
		t.Fatal("all-true conditions should match")
	}
}

func TestEvaluateUnknownFieldIsFalse(t *testing.T) {
	c := Condition{Field: "nope", Operator: fields.OpEquals, Value: "x"}
	if Evaluate(c, jobCatalog(), map[string]any{"nope": "x"}) {
		t.Fatal("unknown field should evaluate false")
	}
}

func TestEvaluateIllegalOperatorIsFalse(t *testing.T) {
	// contains is not legal for a boolean field.
	c := Condition{Field: "is_remote", Operator: fields.OpContains, Value: "tru"}
	if Evaluate(c, jobCatalog(), map[string]any{"is_remote": true}) {
		t.Fatal("illegal operator should evaluate false, not error")
	}
}

func TestEvaluateNumericEquality(t *testing.T) {
	catalog := jobCatalog()
	// JSON decoding yields float64; stored values may be int.
	c := Condition{Field: "salary", Operator: fields.OpEquals, Value: float64(90000)}
	if !Evaluate(c, catalog, map[string]any{"salary": 90000}) {
		t.Fatal("90000 should equal 90000.0 on an integer field")
	}
	if Evaluate(c, catalog, map[string]any{"salary": 90001}) {
		t.Fatal("90001 should not equal 90000")
	}
}

func TestEvaluateBooleanEquality(t *testing.T) {
	c := Condition{Field: "is_remote", Operator: fields.OpEquals, Value: true}
	if !Evaluate(c, jobCatalog(), map[string]any{"is_remote": true}) {
		t.Fatal("true should equal true")
	}
	c.Value = "true"
	if !Evaluate(c, jobCatalog(), map[string]any{"is_remote": true}) {
		t.Fatal("string true should coerce for a boolean field")
	}
}

func TestEvaluateTextEqualityIsCaseSensitive(t *testing.T) {
	c := Condition{Field: "title", Operator: fields.OpEquals, Value: "engineer"}
	if Evaluate(c, jobCatalog(), map[string]any{"title": "Engineer"}) {
		t.Fatal("text equality should be case-sensitive")
	}
}

func TestEvaluateContainsIsCaseInsensitive(t *testing.T) {
	c := Condition{Field: "title", Operator: fields.OpContains, Value: "ENGIN"}
	if !Evaluate(c, jobCatalog(), map[string]any{"title": "Senior Engineer"}) {
		t.Fatal("contains should match case-insensitively")
	}
	c.Operator = fields.OpNotContains
	if Evaluate(c, jobCatalog(), map[string]any{"title": "Senior Engineer"}) {
		t.Fatal("not_contains should be the negation")
	}
}

func TestEvaluateInAndNotIn(t *testing.T) {
	c := Condition{Field: "stage", Operator: fields.OpIn, Value: []any{"screening", "interview"}}
	if !Evaluate(c, jobCatalog(), map[string]any{"stage": "interview"}) {
		t.Fatal("in should match a listed value")
	}
	if Evaluate(c, jobCatalog(), map[string]any{"stage": "offer"}) {
		t.Fatal("in should not match an unlisted value")
	}
	c.Operator = fields.OpNotIn
	if !Evaluate(c, jobCatalog(), map[string]any{"stage": "offer"}) {
		t.Fatal("not_in should match an unlisted value")
	}
}

func TestEvaluateInWithNonListValueIsFalse(t *testing.T) {
	c := Condition{Field: "stage", Operator: fields.OpIn, Value: "screening"}
	if Evaluate(c, jobCatalog(), map[string]any{"stage": "screening"}) {
		t.Fatal("in with a scalar value should evaluate false")
	}
}

func TestEvaluateDateOrdering(t *testing.T) {
	c := Condition{Field: "deadline", Operator: fields.OpLt, Value: "2026-09-01"}
	if !Evaluate(c, jobCatalog(), map[string]any{"deadline": "2026-08-15"}) {
		t.Fatal("earlier date should satisfy lt")
	}
	if Evaluate(c, jobCatalog(), map[string]any{"deadline": "2026-09-15"}) {
		t.Fatal("later date should not satisfy lt")
	}
}

func TestEvaluateOrderingWithUnparsableValueIsFalse(t *testing.T) {
	c := Condition{Field: "salary", Operator: fields.OpGt, Value: "lots"}
	if Evaluate(c, jobCatalog(), map[string]any{"salary": 100}) {
		t.Fatal("unparsable comparison value should evaluate false")
	}
}

func TestEvaluateEmptyChecks(t *testing.T) {
	catalog := jobCatalog()
	isEmpty := Condition{Field: "deadline", Operator: fields.OpIsEmpty}
	if !Evaluate(isEmpty, catalog, map[string]any{"deadline": nil}) {
		t.Fatal("nil should be empty")
	}
	if !Evaluate(isEmpty, catalog, map[string]any{}) {
		t.Fatal("absent value should be empty")
	}
	notEmpty := Condition{Field: "deadline", Operator: fields.OpIsNotEmpty}
	if !Evaluate(notEmpty, catalog, map[string]any{"deadline": "2026-09-01"}) {
		t.Fatal("present value should not be empty")
	}
}

func TestDecode(t *testing.T) {
	raw := []byte(`[{"field":"stage","operator":"equals","value":"offer"}]`)
	conds, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(conds) != 1 || conds[0].Field != "stage" || conds[0].Operator != fields.OpEquals {
		t.Fatalf("unexpected conditions: %+v", conds)
	}

	if conds, err = Decode(nil); err != nil || conds != nil {
		t.Fatalf("decode nil = (%v, %v), want (nil, nil)", conds, err)
	}

	if _, err = Decode([]byte(`{"not":"a list"}`)); err == nil {
		t.Fatal("decode should reject a non-list payload")
	}
}
