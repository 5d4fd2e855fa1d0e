// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// fakeService fails a configurable number of times, then runs until canceled.
type fakeService struct {
	name     string
	starts   atomic.Int32
	stops    atomic.Int32
	failures atomic.Int32
	maxFails int32
}

func newFakeService(name string, maxFails int32) *fakeService {
	return &fakeService{name: name, maxFails: maxFails}
}

func (f *fakeService) Serve(ctx context.Context) error {
	f.starts.Add(1)
	defer f.stops.Add(1)

	if f.maxFails > 0 && f.failures.Add(1) <= f.maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) String() string { return f.name }
