// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"testing"
)

func TestJSONOutput_EmitJSON(t *testing.T) {
	var buffer bytes.Buffer

	disabled := JSONOutput{}
	done, err := disabled.EmitJSON(&buffer, []string{"curl"})
	if done || err != nil || buffer.Len() != 0 {
		t.Fatalf("EmitJSON without --json: done=%v err=%v output=%q", done, err, buffer.String())
	}

	enabled := JSONOutput{OutputJSON: true}
	var entries []string
	done, err = enabled.EmitJSON(&buffer, entries)
	if !done || err != nil {
		t.Fatalf("EmitJSON: done=%v err=%v", done, err)
	}
	if buffer.String() != "[]\n" {
		t.Errorf("nil slice output = %q, want %q", buffer.String(), "[]\n")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, false, false)
	logger.Debug("hidden")
	if buffer.Len() != 0 {
		t.Errorf("debug record written without verbose: %q", buffer.String())
	}

	logger = newLogger(&buffer, false, true)
	logger.Debug("shown")
	if !bytes.Contains(buffer.Bytes(), []byte(`"msg":"shown"`)) {
		t.Errorf("verbose JSON logger output = %q", buffer.String())
	}
}
