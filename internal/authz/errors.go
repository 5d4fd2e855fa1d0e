// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package authz

import (
	"context"
	"errors"

	"github.com/tomtom215/tenantguard/internal/audit"
	"github.com/tomtom215/tenantguard/internal/cache"
	"github.com/tomtom215/tenantguard/internal/policy"
	"github.com/tomtom215/tenantguard/internal/version"
)

// ErrorKind classifies authorization failures.
type ErrorKind string

const (
	KindPolicyStoreUnavailable  ErrorKind = "policy_store_unavailable"
	KindCacheBackendUnavailable ErrorKind = "cache_backend_unavailable"
	KindVersionStoreUnavailable ErrorKind = "version_store_unavailable"
	KindAuditWriteFailed        ErrorKind = "audit_write_failed"
	KindInvalidRuleData         ErrorKind = "invalid_rule_data"
	KindCanceled                ErrorKind = "canceled"
	KindInternal                ErrorKind = "internal"
)

// AffectsDecision reports whether errors of this kind force a deny.
func (k ErrorKind) AffectsDecision() bool {
	switch k {
	case KindCacheBackendUnavailable, KindVersionStoreUnavailable, KindAuditWriteFailed:
		return false
	}
	return true
}

// Error is an authorization failure with its kind and the failed operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps err to its kind. Errors raised by the policy, version, cache
// and audit packages are recognized through their sentinels.
func Classify(err error) ErrorKind {
	var authzErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authzErr):
		return authzErr.Kind
	case errors.Is(err, policy.ErrStoreUnavailable), errors.Is(err, policy.ErrNoSnapshot):
		return KindPolicyStoreUnavailable
	case errors.Is(err, policy.ErrInvalidRule):
		return KindInvalidRuleData
	case errors.Is(err, version.ErrUnavailable):
		return KindVersionStoreUnavailable
	case errors.Is(err, cache.ErrBackendUnavailable):
		return KindCacheBackendUnavailable
	case errors.Is(err, audit.ErrWriteFailed):
		return KindAuditWriteFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// wrap attaches the classified kind to err.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}
