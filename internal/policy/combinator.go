// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package policy

import "fmt"

// Combinator folds the effects of all permission rules that matched a request
// into a single decision. It only ever sees rules of the request's own tenant;
// tenant filtering happens before combination.
type Combinator interface {
	Name() string
	Combine(matched []Effect) (bool, error)
}

// AllowOverrides allows when at least one matching rule allows. Deny rules are
// ignored, so with no matching allow the result is the default deny.
type AllowOverrides struct{}

// Name implements Combinator.
func (AllowOverrides) Name() string { return "allow-overrides" }

// Combine implements Combinator.
func (AllowOverrides) Combine(matched []Effect) (bool, error) {
	allowed := false
	for _, e := range matched {
		switch e {
		case EffectAllow:
			allowed = true
		case EffectDeny:
		default:
			return false, fmt.Errorf("%w: unknown effect %q", ErrInvalidRule, e)
		}
	}
	return allowed, nil
}

// DenyOverrides denies when any matching rule denies, otherwise allows when at
// least one matching rule allows.
type DenyOverrides struct{}

// Name implements Combinator.
func (DenyOverrides) Name() string { return "deny-overrides" }

// Combine implements Combinator.
func (DenyOverrides) Combine(matched []Effect) (bool, error) {
	allowed := false
	for _, e := range matched {
		switch e {
		case EffectDeny:
			return false, nil
		case EffectAllow:
			allowed = true
		default:
			return false, fmt.Errorf("%w: unknown effect %q", ErrInvalidRule, e)
		}
	}
	return allowed, nil
}
