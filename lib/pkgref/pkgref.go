// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package pkgref

import (
	"fmt"
	"strings"
)

// Separator joins the name and hash halves of an exact identity.
const Separator = "@"

// Ref is an exact package identity: a name and the content hash of its
// recipe. Ref is an immutable value type and is comparable, so it can be
// used directly as a map key. The zero value is not valid; use IsZero to
// check.
type Ref struct {
	name string
	hash string
}

// New validates name and hash and returns the identity they form.
func New(name, hash string) (Ref, error) {
	if err := validatePart("name", name); err != nil {
		return Ref{}, err
	}
	if err := validatePart("hash", hash); err != nil {
		return Ref{}, err
	}
	return Ref{name: name, hash: hash}, nil
}

// Parse parses "name@hash". The string must contain exactly one "@".
func Parse(raw string) (Ref, error) {
	switch strings.Count(raw, Separator) {
	case 0:
		return Ref{}, fmt.Errorf("package identity %q: missing %q", raw, Separator)
	case 1:
	default:
		return Ref{}, fmt.Errorf("package identity %q: more than one %q", raw, Separator)
	}
	name, hash, _ := strings.Cut(raw, Separator)
	ref, err := New(name, hash)
	if err != nil {
		return Ref{}, fmt.Errorf("package identity %q: %w", raw, err)
	}
	return ref, nil
}

// MustParse is like Parse but panics on error. Use in tests and static
// initialization where the input is known-valid.
func MustParse(raw string) Ref {
	ref, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("pkgref.MustParse(%q): %v", raw, err))
	}
	return ref
}

// Name returns the package name half of the identity.
func (r Ref) Name() string { return r.name }

// Hash returns the content hash half of the identity.
func (r Ref) Hash() string { return r.hash }

// String returns the canonical "name@hash" form.
func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	return r.name + Separator + r.hash
}

// IsZero reports whether the Ref is the zero value.
func (r Ref) IsZero() bool { return r.name == "" && r.hash == "" }

// Escaped returns the identity with "@" replaced by "_". Shell function
// names cannot contain "@", so the hack environment script uses this
// form when naming per-package actions.
func (r Ref) Escaped() string { return r.name + "_" + r.hash }

// Compare orders identities by name, then hash. Suitable for
// slices.SortFunc.
func Compare(a, b Ref) int {
	if c := strings.Compare(a.name, b.name); c != 0 {
		return c
	}
	return strings.Compare(a.hash, b.hash)
}

// MarshalText implements encoding.TextMarshaler. Identities are used as
// JSON object keys in generation metadata, which relies on this.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the
// identity.
func (r *Ref) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// validatePart checks one half of an identity. Both halves end up in
// filesystem paths, so anything that could escape a directory or
// confuse a shell-quoted path is rejected.
func validatePart(label, value string) error {
	if value == "" {
		return fmt.Errorf("empty %s", label)
	}
	if strings.HasPrefix(value, ".") {
		return fmt.Errorf("%s %q starts with '.'", label, value)
	}
	for _, c := range value {
		switch {
		case c < 0x20 || c == 0x7f:
			return fmt.Errorf("%s %q contains a control character", label, value)
		case c == '/' || c == '\\':
			return fmt.Errorf("%s %q contains a path separator", label, value)
		case c == '@':
			return fmt.Errorf("%s %q contains %q", label, value, Separator)
		case c == ' ':
			return fmt.Errorf("%s %q contains a space", label, value)
		}
	}
	return nil
}
