// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"

	"github.com/boldos/bold/lib/snapshot"
)

// Generations lists every committed generation, oldest first.
func (m *Manager) Generations() ([]snapshot.Generation, error) {
	return m.snapshots.Generations()
}

// Switch makes an existing generation the current one.
func (m *Manager) Switch(ctx context.Context, id int) error {
	return m.snapshots.Switch(ctx, id)
}
