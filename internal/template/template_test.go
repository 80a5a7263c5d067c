package template

import (
	"reflect"
	"testing"

	"github.com/recruitflow/automation/internal/fields"
)

func sampleCatalog() map[string]fields.ModelField {
	return fields.ByName([]fields.ModelField{
		{Name: "name", Type: fields.TypeText},
		{Name: "salary", Type: fields.TypeInteger},
		{Name: "is_remote", Type: fields.TypeBoolean},
		{Name: "deadline", Type: fields.TypeDate},
		{Name: "starts_at", Type: fields.TypeDatetime},
		{Name: "stage", Type: fields.TypeText, Choices: []fields.Choice{
			{Value: "interview", Label: "Interview"},
		}},
	})
}

func TestRenderSubstitutesFields(t *testing.T) {
	got := Render("Hello {{name}}", map[string]any{"name": "Ada"}, sampleCatalog())
	if got != "Hello Ada" {
		t.Fatalf("Render = %q, want Hello Ada", got)
	}
}

func TestRenderToleratesInnerWhitespace(t *testing.T) {
	got := Render("Hello {{ name }}", map[string]any{"name": "Ada"}, sampleCatalog())
	if got != "Hello Ada" {
		t.Fatalf("Render = %q, want Hello Ada", got)
	}
}

func TestRenderLeavesUnresolvedPlaceholdersVerbatim(t *testing.T) {
	got := Render("Hi {{missing}} and {{name}}", map[string]any{"name": "Ada"}, sampleCatalog())
	if got != "Hi {{missing}} and Ada" {
		t.Fatalf("Render = %q", got)
	}
}

func TestRenderUsesChoiceLabels(t *testing.T) {
	got := Render("Stage: {{stage}}", map[string]any{"stage": "interview"}, sampleCatalog())
	if got != "Stage: Interview" {
		t.Fatalf("Render = %q, want Stage: Interview", got)
	}
}

func TestRenderFormatsBooleansAndDates(t *testing.T) {
	snapshot := map[string]any{
		"is_remote": true,
		"deadline":  "2026-09-01",
		"starts_at": "2026-09-01T14:30:00Z",
	}
	got := Render("{{is_remote}} / {{deadline}} / {{starts_at}}", snapshot, sampleCatalog())
	want := "Yes / Sep 1, 2026 / Sep 1, 2026 14:30"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestRenderFieldAbsentFromCatalog(t *testing.T) {
	// A snapshot value without catalog metadata renders raw.
	got := Render("{{extra}}", map[string]any{"extra": 7}, sampleCatalog())
	if got != "7" {
		t.Fatalf("Render = %q, want 7", got)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{a}} {{b}} {{a}}")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Placeholders = %v", got)
	}
	if got = Placeholders("no placeholders"); got != nil {
		t.Fatalf("Placeholders = %v, want nil", got)
	}
}

func TestDisplayValueNil(t *testing.T) {
	if got := DisplayValue(fields.ModelField{Type: fields.TypeText}, nil); got != "" {
		t.Fatalf("DisplayValue(nil) = %q, want empty", got)
	}
}

func TestDisplayValueFloatFormatting(t *testing.T) {
	field := fields.ModelField{Type: fields.TypeDecimal}
	if got := DisplayValue(field, float64(95000.5)); got != "95000.5" {
		t.Fatalf("DisplayValue = %q, want 95000.5", got)
	}
	if got := DisplayValue(field, float64(95000)); got != "95000" {
		t.Fatalf("DisplayValue = %q, want 95000", got)
	}
}
