// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package pkgref

import (
	"fmt"
	"strings"
)

// Selector is one parsed command-line package argument. Exactly one of
// Exact and Symbolic is set.
type Selector struct {
	// Raw is the argument as the user typed it.
	Raw string

	// Exact is set when Raw contained exactly one "@".
	Exact Ref

	// Symbolic is set when Raw contained no "@": a named package to be
	// looked up in the alias table.
	Symbolic string
}

// IsExact reports whether the selector names an exact identity.
func (s Selector) IsExact() bool { return !s.Exact.IsZero() }

// SelectorSyntaxError lists every malformed selector from one call to
// ParseSelectors.
type SelectorSyntaxError struct {
	// Invalid holds the offending selectors in argument order, each
	// paired with the reason it was rejected.
	Invalid []InvalidSelector
}

// InvalidSelector is one rejected selector.
type InvalidSelector struct {
	Raw    string
	Reason string
}

func (e *SelectorSyntaxError) Error() string {
	var builder strings.Builder
	builder.WriteString("the following package names are invalid:")
	for _, invalid := range e.Invalid {
		fmt.Fprintf(&builder, "\n- %s (%s)", invalid.Raw, invalid.Reason)
	}
	return builder.String()
}

// Selectors returns the raw strings of the invalid selectors.
func (e *SelectorSyntaxError) Selectors() []string {
	raws := make([]string, len(e.Invalid))
	for i, invalid := range e.Invalid {
		raws[i] = invalid.Raw
	}
	return raws
}

// ParseSelector classifies a single argument.
func ParseSelector(raw string) (Selector, error) {
	selectors, err := ParseSelectors([]string{raw})
	if err != nil {
		return Selector{}, err
	}
	return selectors[0], nil
}

// ParseSelectors classifies every argument. Nothing is looked up here:
// a selector with two or more "@" is rejected before any index access.
// All malformed selectors are collected into one *SelectorSyntaxError.
// Duplicate arguments are kept; callers that key results by Raw
// collapse them naturally.
func ParseSelectors(raws []string) ([]Selector, error) {
	selectors := make([]Selector, 0, len(raws))
	var syntaxError SelectorSyntaxError

	for _, raw := range raws {
		switch strings.Count(raw, Separator) {
		case 0:
			if err := validatePart("name", raw); err != nil {
				syntaxError.Invalid = append(syntaxError.Invalid, InvalidSelector{Raw: raw, Reason: err.Error()})
				continue
			}
			selectors = append(selectors, Selector{Raw: raw, Symbolic: raw})
		case 1:
			name, hash, _ := strings.Cut(raw, Separator)
			ref, err := New(name, hash)
			if err != nil {
				syntaxError.Invalid = append(syntaxError.Invalid, InvalidSelector{Raw: raw, Reason: err.Error()})
				continue
			}
			selectors = append(selectors, Selector{Raw: raw, Exact: ref})
		default:
			syntaxError.Invalid = append(syntaxError.Invalid, InvalidSelector{
				Raw:    raw,
				Reason: fmt.Sprintf("more than one %q", Separator),
			})
		}
	}

	if len(syntaxError.Invalid) > 0 {
		return nil, &syntaxError
	}
	return selectors, nil
}
