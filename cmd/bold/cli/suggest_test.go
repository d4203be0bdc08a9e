// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"ab", "abc", 1},
		{"abc", "bac", 2},
		{"kitten", "sitting", 3},
		{"install", "instal", 1},
		{"remove", "rmeove", 2},
	}
	for _, test := range tests {
		t.Run(test.a+"/"+test.b, func(t *testing.T) {
			if got := levenshtein(test.a, test.b); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if got := levenshtein(test.b, test.a); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.b, test.a, got, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "install"},
		{Name: "remove"},
		{Name: "update"},
		{Name: "list"},
		{Name: "generations"},
	}
	tests := []struct {
		input string
		want  string
	}{
		{"instal", "install"},
		{"rmove", "remove"},
		{"updte", "update"},
		{"lst", "list"},
		{"generation", "generations"},
		{"zzzzzzzzz", ""},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			if got := suggestCommand(test.input, commands); got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flagSet.Bool("installed", false, "")
	flagSet.Bool("lines", false, "")
	flagSet.BoolP("verbose", "v", false, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"long typo", []string{"--instaled"}, "--installed"},
		{"with value", []string{"--line=true"}, "--lines"},
		{"skips known flags", []string{"-v", "--installd"}, "--installed"},
		{"positional only", []string{"curl"}, ""},
		{"nothing close", []string{"--completely-different"}, ""},
		{"stops at terminator", []string{"--", "--instaled"}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, flagSet); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
