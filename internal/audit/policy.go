// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package audit

import (
	"path"
	"strings"
)

// Policy decides which authorization decisions are recorded.
type Policy struct {
	patterns []string
}

// NewPolicy creates a logging policy. Patterns use path.Match syntax; a
// trailing "/**" matches the prefix itself and everything below it.
func NewPolicy(sensitivePatterns []string) *Policy {
	patterns := make([]string, 0, len(sensitivePatterns))
	for _, p := range sensitivePatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Policy{patterns: patterns}
}

// ShouldLogDecision reports whether a decision on resource must be recorded.
// Denials always are.
func (p *Policy) ShouldLogDecision(resource string, allowed bool) bool {
	if !allowed {
		return true
	}
	return p.IsSensitive(resource)
}

// IsSensitive reports whether resource matches a sensitive pattern.
func (p *Policy) IsSensitive(resource string) bool {
	for _, pattern := range p.patterns {
		if matchPattern(pattern, resource) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, resource string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		if resource == prefix || strings.HasPrefix(resource, prefix+"/") {
			return true
		}
		if ok, _ := path.Match(prefix, resource); ok {
			return true
		}
		// Prefixes may contain wildcards themselves, e.g. /tenants/*/billing/**.
		depth := strings.Count(prefix, "/")
		parts := strings.SplitAfterN(resource, "/", depth+2)
		if len(parts) > depth+1 {
			head := strings.TrimSuffix(strings.Join(parts[:depth+1], ""), "/")
			ok, _ := path.Match(prefix, head)
			return ok
		}
		return false
	}
	ok, err := path.Match(pattern, resource)
	return err == nil && ok
}
