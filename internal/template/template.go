package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/recruitflow/automation/internal/fields"
)

// placeholderPattern matches {{field_name}} with optional inner whitespace.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Render substitutes {{field}} placeholders against the record snapshot.
// Placeholders whose field is absent from the snapshot are left verbatim, so
// a partially configured rule stays inspectable instead of failing to render.
func Render(tmpl string, snapshot map[string]any, catalog map[string]fields.ModelField) string {
	if tmpl == "" || !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := snapshot[name]
		if !ok {
			return match
		}
		field, haveField := catalog[name]
		if !haveField {
			return fmt.Sprintf("%v", value)
		}
		return DisplayValue(field, value)
	})
}

// Placeholders returns the distinct field names referenced by the template,
// in first-appearance order.
func Placeholders(tmpl string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// DisplayValue formats a field value for human-facing output: choice fields
// render their label, temporals a readable timestamp, booleans Yes/No.
func DisplayValue(field fields.ModelField, value any) string {
	if value == nil {
		return ""
	}
	if field.HasChoices() {
		return field.ChoiceLabel(rawString(value))
	}
	switch field.Type {
	case fields.TypeBoolean:
		if b, ok := value.(bool); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	case fields.TypeDate:
		if t, ok := asDisplayTime(value); ok {
			return t.Format("Jan 2, 2006")
		}
	case fields.TypeDatetime:
		if t, ok := asDisplayTime(value); ok {
			return t.Format("Jan 2, 2006 15:04")
		}
	case fields.TypeDecimal, fields.TypeFloat:
		if f, ok := value.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return rawString(value)
}

func rawString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asDisplayTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
