package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/taskplan/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrNilCatalog = "E200" // nothing to validate

	// Catalog errors (E201-E209)
	ErrUnknownTemplate    = "E201" // rule references a template that does not exist
	ErrInvalidGroupKind   = "E202" // attach_to or scope is not project/shared/deliverable
	ErrScopeMismatch      = "E203" // rule attach_to differs from its template scope
	ErrUnknownFlag        = "E204" // flags_any names an unknown workflow flag
	ErrDuplicateKey       = "E205" // duplicate key or rule id
	ErrEmptyLabel         = "E206" // label or title is empty
	ErrUnknownRegistryKey = "E207" // reference to an undeclared category or deliverable
)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every problem found in a catalog.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("catalog has %d validation error(s): %s", len(v), strings.Join(msgs, "; "))
}

// Validate checks a compiled catalog for semantic errors.
// Returns all errors found (does not fail-fast).
func Validate(cat *ir.Catalog) []ValidationError {
	if cat == nil {
		return []ValidationError{{Field: "catalog", Message: "catalog is nil", Code: ErrNilCatalog}}
	}

	var errs []ValidationError

	categories := make(map[string]bool)
	for i, c := range cat.Categories {
		field := fmt.Sprintf("category.%s", c.Key)
		if categories[c.Key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("categories[%d].key", i),
				Message: fmt.Sprintf("duplicate category key: %q", c.Key),
				Code:    ErrDuplicateKey,
			})
		}
		categories[c.Key] = true
		errs = append(errs, checkNonEmpty(field+".label", c.Label)...)
	}

	deliverables := make(map[string]bool)
	for i, d := range cat.Deliverables {
		field := fmt.Sprintf("deliverable.%s", d.Key)
		if deliverables[d.Key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("deliverables[%d].key", i),
				Message: fmt.Sprintf("duplicate deliverable key: %q", d.Key),
				Code:    ErrDuplicateKey,
			})
		}
		deliverables[d.Key] = true
		errs = append(errs, checkNonEmpty(field+".label", d.Label)...)
		if d.CategoryKey != "" && !categories[d.CategoryKey] {
			errs = append(errs, ValidationError{
				Field:   field + ".category_key",
				Message: fmt.Sprintf("unknown category %q", d.CategoryKey),
				Code:    ErrUnknownRegistryKey,
			})
		}
	}

	templates := make(map[string]ir.Template)
	for i, t := range cat.Templates {
		field := fmt.Sprintf("template.%s", t.Key)
		if _, dup := templates[t.Key]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("templates[%d].key", i),
				Message: fmt.Sprintf("duplicate template key: %q", t.Key),
				Code:    ErrDuplicateKey,
			})
		}
		templates[t.Key] = t
		errs = append(errs, checkNonEmpty(field+".title", t.Title)...)
		if !ir.ValidGroupKinds[t.Scope] {
			errs = append(errs, invalidKind(field+".scope", t.Scope))
		}
		errs = append(errs, checkRegistryRefs(field, t.CategoryKey, t.DeliverableKey, categories, deliverables)...)
	}

	ruleIDs := make(map[string]bool)
	for i, r := range cat.Rules {
		field := fmt.Sprintf("rule.%s", r.ID)
		if ruleIDs[r.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("rules[%d].id", i),
				Message: fmt.Sprintf("duplicate rule id: %q", r.ID),
				Code:    ErrDuplicateKey,
			})
		}
		ruleIDs[r.ID] = true

		validKind := ir.ValidGroupKinds[r.Match.AttachTo]
		if !validKind {
			errs = append(errs, invalidKind(field+".match.attach_to", r.Match.AttachTo))
		}

		t, ok := templates[r.TemplateKey]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".template_key",
				Message: fmt.Sprintf("unknown template %q", r.TemplateKey),
				Code:    ErrUnknownTemplate,
			})
		} else if validKind && ir.ValidGroupKinds[t.Scope] && t.Scope != r.Match.AttachTo {
			errs = append(errs, ValidationError{
				Field:   field + ".match.attach_to",
				Message: fmt.Sprintf("attach_to %q does not match template %q scope %q", r.Match.AttachTo, t.Key, t.Scope),
				Code:    ErrScopeMismatch,
			})
		}

		for j, flag := range r.Match.FlagsAny {
			if !ir.IsFlagName(flag) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.match.flags_any[%d]", field, j),
					Message: fmt.Sprintf("unknown flag %q, must be one of %s", flag, strings.Join(ir.FlagNames, ", ")),
					Code:    ErrUnknownFlag,
				})
			}
		}

		errs = append(errs, checkRegistryRefs(field+".match", r.Match.CategoryKey, r.Match.DeliverableKey, categories, deliverables)...)
	}

	return errs
}

func checkNonEmpty(field, value string) []ValidationError {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: "must be non-empty",
		Code:    ErrEmptyLabel,
	}}
}

func invalidKind(field string, kind ir.GroupKind) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("invalid group kind %q, must be \"project\", \"shared\", or \"deliverable\"", kind),
		Code:    ErrInvalidGroupKind,
	}
}

func checkRegistryRefs(field, categoryKey, deliverableKey string, categories, deliverables map[string]bool) []ValidationError {
	var errs []ValidationError
	if categoryKey != "" && !categories[categoryKey] {
		errs = append(errs, ValidationError{
			Field:   field + ".category_key",
			Message: fmt.Sprintf("unknown category %q", categoryKey),
			Code:    ErrUnknownRegistryKey,
		})
	}
	if deliverableKey != "" && !deliverables[deliverableKey] {
		errs = append(errs, ValidationError{
			Field:   field + ".deliverable_key",
			Message: fmt.Sprintf("unknown deliverable %q", deliverableKey),
			Code:    ErrUnknownRegistryKey,
		})
	}
	return errs
}
