// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP helpers shared by the downloaders.
//
// [CheckResponse] turns a non-200 response into a [StatusError] that
// carries a bounded excerpt of the body for diagnostics. [IsTransient]
// classifies errors that a retry could fix: timeouts, refused or
// reset connections, and 5xx responses.
package netutil
