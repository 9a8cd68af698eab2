package tsomap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Field names one of the three equivalent selector inputs.
type Field int

const (
	FieldCountry Field = iota
	FieldISOCode
	FieldOperator
)

func (f Field) String() string {
	switch f {
	case FieldCountry:
		return "country"
	case FieldISOCode:
		return "iso"
	case FieldOperator:
		return "operator"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField accepts the names String returns.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "country":
		return FieldCountry, nil
	case "iso", "acronym", "isocode":
		return FieldISOCode, nil
	case "operator", "tso", "company":
		return FieldOperator, nil
	}
	return 0, fmt.Errorf("unknown selection field %q", s)
}

func (f Field) of(e TsoEntry) string {
	switch f {
	case FieldCountry:
		return e.Country
	case FieldISOCode:
		return e.ISOCode
	default:
		return e.Operator
	}
}

// Selection is the synchronized state of the three selectors.
type Selection struct {
	Country  string `json:"country"`
	ISOCode  string `json:"iso"`
	Operator string `json:"operator"`
}

func selectionFrom(e TsoEntry) Selection {
	return Selection{Country: e.Country, ISOCode: e.ISOCode, Operator: e.Operator}
}

// SelectionError reports a selector value with no registry row.
type SelectionError struct {
	Field      Field
	Value      string
	Suggestion string // Closest known value, empty if none
}

func (e *SelectionError) Error() string {
	msg := fmt.Sprintf("no TSO with %s %q", e.Field, e.Value)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *SelectionError) Unwrap() error { return ErrUnknownSelection }

// Selector keeps country, ISO code and operator consistent with one
// registry row. Not safe for concurrent use.
type Selector struct {
	registry *Registry
	current  Selection
}

// NewSelector starts on the first registry row.
func NewSelector(r *Registry) (*Selector, error) {
	if r == nil || r.Len() == 0 {
		return nil, ErrEmptyRegistry
	}
	return &Selector{registry: r, current: selectionFrom(r.entries[0])}, nil
}

// Current returns the synchronized selection.
func (s *Selector) Current() Selection { return s.current }

// Apply sets field to value and re-derives the other two fields from the
// matching registry row. An unknown value leaves the selection untouched
// and returns a *SelectionError.
func (s *Selector) Apply(field Field, value string) error {
	e, err := s.registry.Resolve(field, value)
	if err != nil {
		return err
	}
	s.current = selectionFrom(e)
	return nil
}

// Resolve finds the unique entry whose field equals value.
func (r *Registry) Resolve(field Field, value string) (TsoEntry, error) {
	var (
		e  TsoEntry
		ok bool
	)
	switch field {
	case FieldCountry:
		e, ok = r.ByCountry(value)
	case FieldISOCode:
		e, ok = r.ByISO(value)
	case FieldOperator:
		e, ok = r.ByOperator(value)
	default:
		return TsoEntry{}, fmt.Errorf("unknown selection field %v", field)
	}
	if !ok {
		return TsoEntry{}, &SelectionError{Field: field, Value: value, Suggestion: closest(value, r.values(field))}
	}
	return e, nil
}

// maxSuggestionDistance bounds how different a suggestion may be from the
// rejected value.
const maxSuggestionDistance = 3

// closest returns the candidate with the smallest case-insensitive edit
// distance to value, or "" if none is within maxSuggestionDistance. Ties go
// to the earlier candidate.
func closest(value string, candidates []string) string {
	v := strings.ToLower(value)
	best, bestDist := "", maxSuggestionDistance+1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(v, strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// IsUnknownSelection reports whether err came from an unknown selector value.
func IsUnknownSelection(err error) bool {
	return errors.Is(err, ErrUnknownSelection)
}
