// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package cache

import "context"

// NoOp never stores anything; every lookup is a miss.
type NoOp struct{}

// Name implements Cache.
func (NoOp) Name() string { return "none" }

// Get implements Cache.
func (NoOp) Get(context.Context, Key) (bool, bool) { return false, false }

// Set implements Cache.
func (NoOp) Set(context.Context, Key, bool) {}

// InvalidateTenant implements Cache.
func (NoOp) InvalidateTenant(context.Context, string) error { return nil }

// Stats implements Cache.
func (NoOp) Stats() Stats { return Stats{} }
