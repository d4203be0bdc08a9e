// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status
// and whose command already reported the problem.
type exitCoder interface {
	ExitCode() int
}

// Exit terminates the process for err returned from main's run
// function. A nil err exits 0.
func Exit(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes the message for err, if any, and returns the exit
// status.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
