// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package ifaces compiles interface filter rules and collects
// per-interface address records from the netlink adapter.
package ifaces

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/netifmon/netifmond/internal/netlinkx"
)

// Filter is an immutable, concurrency-safe compiled rule set. Built
// once at startup and shared read-only by every goroutine that calls
// Select, including the sampler's refresh ticks.
type Filter struct {
	rules       []*regexp.Regexp // nil entry == wildcard "None" rule
	wildcardAny bool             // true when rules is empty or all-nil
}

// CompileFilter compiles each pattern string. An uncompilable pattern
// becomes a wildcard-less "never matches" rule (logged once) rather
// than aborting the whole filter, matching spec.md §4.C.
func CompileFilter(log *zap.Logger, patterns []*string) *Filter {
	f := &Filter{rules: make([]*regexp.Regexp, len(patterns))}
	allWildcard := true
	for i, p := range patterns {
		if p == nil {
			f.rules[i] = nil
			continue
		}
		allWildcard = false
		re, err := regexp.Compile(*p)
		if err != nil {
			if log != nil {
				log.Warn("interface filter pattern does not compile, it will never match",
					zap.String("pattern", *p), zap.Error(err))
			}
			f.rules[i] = neverMatches
			continue
		}
		f.rules[i] = re
	}
	f.wildcardAny = len(patterns) == 0 || allWildcard
	return f
}

// neverMatches is substituted for a pattern that failed to compile.
var neverMatches = regexp.MustCompile(`$.^`)

// Select returns the names of every link the filter admits, in the
// order the netlink adapter enumerated them.
func (f *Filter) Select(links []netlinkx.LinkInfo) []string {
	var out []string
	for _, l := range links {
		if l.IsLoopback {
			continue
		}
		if f.admits(l.Name) {
			out = append(out, l.Name)
		}
	}
	return out
}

func (f *Filter) admits(name string) bool {
	if f.wildcardAny {
		return true
	}
	for _, re := range f.rules {
		if re == nil {
			return true // a None rule is a wildcard for non-loopback links
		}
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
