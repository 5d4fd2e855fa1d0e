// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

/*
Package policy holds the authorization rule model and its evaluation.

Two kinds of rule exist. A PermissionRule grants (or, with a deny-aware
combinator, refuses) an action on a resource to a subject or role inside one
tenant. A GroupingRule places a subject into a role inside one tenant; roles may
themselves be grouped into other roles.

A request (subject, tenant, resource, action) is allowed when a permission rule
for exactly that tenant, resource and action names a subject or role reachable
from the requesting subject through zero or more grouping hops, all scoped to
the same tenant. Rules of other tenants are never consulted, even when the role
names coincide.

Rules are compiled into an immutable Snapshot. The Store publishes a new
snapshot on every mutation so readers never observe a partially applied change.
*/
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRule indicates malformed rule or request data.
	ErrInvalidRule = errors.New("invalid rule data")

	// ErrStoreUnavailable indicates the durable backend could not be read or written.
	ErrStoreUnavailable = errors.New("policy store unavailable")

	// ErrNoSnapshot is returned when evaluation is attempted before the store is loaded.
	ErrNoSnapshot = errors.New("policy snapshot not loaded")
)

// Effect is the outcome a matching permission rule produces.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Valid reports whether e is a known effect.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// PermissionRule grants Action on Resource within Tenant to Subject, which is
// either a user or a role name.
type PermissionRule struct {
	Subject  string `json:"subject" validate:"required,max=256"`
	Tenant   string `json:"tenant" validate:"required,max=128"`
	Resource string `json:"resource" validate:"required,max=1024"`
	Action   string `json:"action" validate:"required,max=64"`
	Effect   Effect `json:"effect" validate:"omitempty,oneof=allow deny"`
}

// Normalize fills defaults. An empty effect means allow.
func (r PermissionRule) Normalize() PermissionRule {
	if r.Effect == "" {
		r.Effect = EffectAllow
	}
	return r
}

// Validate checks that every field is populated and the effect is known.
func (r PermissionRule) Validate() error {
	if r.Subject == "" || r.Tenant == "" || r.Resource == "" || r.Action == "" {
		return fmt.Errorf("%w: permission rule requires subject, tenant, resource and action", ErrInvalidRule)
	}
	if !r.Effect.Valid() {
		return fmt.Errorf("%w: unknown effect %q", ErrInvalidRule, r.Effect)
	}
	return nil
}

// ID is a stable identifier derived from the rule's fields.
func (r PermissionRule) ID() string {
	return ruleID("p", r.Subject, r.Tenant, r.Resource, r.Action, string(r.Effect))
}

// GroupingRule makes Subject a member of Role within Tenant.
type GroupingRule struct {
	Subject string `json:"subject" validate:"required,max=256"`
	Role    string `json:"role" validate:"required,max=256"`
	Tenant  string `json:"tenant" validate:"required,max=128"`
}

// Validate checks that every field is populated and the rule is not a self-loop.
func (g GroupingRule) Validate() error {
	if g.Subject == "" || g.Role == "" || g.Tenant == "" {
		return fmt.Errorf("%w: grouping rule requires subject, role and tenant", ErrInvalidRule)
	}
	if g.Subject == g.Role {
		return fmt.Errorf("%w: subject %q cannot be grouped into itself", ErrInvalidRule, g.Subject)
	}
	return nil
}

// ID is a stable identifier derived from the rule's fields.
func (g GroupingRule) ID() string {
	return ruleID("g", g.Subject, g.Role, g.Tenant)
}

// Request is a single authorization question.
type Request struct {
	Subject  string
	Tenant   string
	Resource string
	Action   string
}

// Validate checks that every field is populated.
func (r Request) Validate() error {
	if r.Subject == "" || r.Tenant == "" || r.Resource == "" || r.Action == "" {
		return fmt.Errorf("%w: request requires subject, tenant, resource and action", ErrInvalidRule)
	}
	return nil
}

// ruleID hashes the fields with a separator that cannot appear in a
// length-prefixed encoding, so ("a:b","c") and ("a","b:c") differ.
func ruleID(kind string, fields ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, f := range fields {
		fmt.Fprintf(h, "|%d:%s", len(f), f)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
