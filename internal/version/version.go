// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

// Package version maintains the authorization version counters used as the
// revocation signal for cached decisions.
//
// Each tenant has a policy version that is bumped after any permission or
// grouping change in that tenant. Each user has an authz version that is
// bumped after that user's role assignments change. Counters start at 1 and
// only ever increase, so 0 is never a valid version and a missing version is
// never confused with one.
package version

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// InitialVersion is the version of a tenant or user that has never been bumped.
const InitialVersion int64 = 1

var (
	// ErrUnavailable indicates the version backend could not be read or written.
	ErrUnavailable = errors.New("version store unavailable")

	// ErrEmptyID is returned for an empty tenant or user id.
	ErrEmptyID = errors.New("version id is empty")
)

// Store reads and bumps authorization versions. Bumps are atomic
// increment-and-read: concurrent bumps never lose an increment and the
// returned value is the version after this bump.
type Store interface {
	TenantVersion(ctx context.Context, tenantID string) (int64, error)
	UserVersion(ctx context.Context, userID string) (int64, error)
	BumpTenant(ctx context.Context, tenantID string) (int64, error)
	BumpUser(ctx context.Context, userID string) (int64, error)
}

// Versions fetches the tenant and user versions concurrently.
func Versions(ctx context.Context, s Store, tenantID, userID string) (tenantV, userV int64, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.TenantVersion(ctx, tenantID)
		tenantV = v
		return err
	})
	g.Go(func() error {
		v, err := s.UserVersion(ctx, userID)
		userV = v
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return tenantV, userV, nil
}
