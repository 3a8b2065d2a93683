// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package match compiles exclusion patterns into immutable matchers that are
// evaluated against root-relative paths.
//
// The default syntax knows a single wildcard, `*`, which matches any run of
// characters including path separators. Matching is anchored and case-insensitive:
//
//	m, _ := match.Compile("*HDR")
//	m.Matches("Photos/HDR")  // true
//	m.Matches("Photos/HDRX") // false
//
// Every string passed to Compile follows that rule, whatever it looks like.
// Doublestar syntax, where `*` stops at separators and `**` crosses them, is
// only available through CompileGlob.
package match

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Matcher is a compiled exclusion pattern
type Matcher struct {
	pattern string
	re      *regexp.Regexp
	glob    string
}

// 🏭 Compile turns a `*`-wildcard pattern into a Matcher. Any string is a
// valid pattern.
func Compile(pattern string) (*Matcher, error) {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}

	re, err := regexp.Compile("(?is)^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return nil, errors.Errorf("compiling pattern %q: %w", pattern, err)
	}

	return &Matcher{pattern: pattern, re: re}, nil
}

// 🏭 CompileGlob turns a doublestar pattern into a Matcher. Matching is
// case-insensitive like Compile.
func CompileGlob(pattern string) (*Matcher, error) {
	glob := strings.ToLower(pattern)
	if !doublestar.ValidatePattern(glob) {
		return nil, errors.Errorf("invalid glob pattern %q", pattern)
	}
	return &Matcher{pattern: pattern, glob: glob}, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(pattern string) *Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// 🔍 Matches reports whether the whole relative path matches the pattern
func (m *Matcher) Matches(rel string) bool {
	if m.re != nil {
		return m.re.MatchString(rel)
	}
	ok, err := doublestar.Match(m.glob, strings.ToLower(rel))
	return err == nil && ok
}

// String returns the pattern the matcher was compiled from.
func (m *Matcher) String() string {
	return m.pattern
}

// 📋 Set is a list of matchers with any-of semantics
type Set []*Matcher

// 🏭 CompileAll compiles `*`-wildcard patterns followed by doublestar globs
// into one set, failing on the first invalid glob
func CompileAll(patterns, globs []string) (Set, error) {
	set := make(Set, 0, len(patterns)+len(globs))
	for _, p := range patterns {
		m, err := Compile(p)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	for _, g := range globs {
		m, err := CompileGlob(g)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	return set, nil
}

// 🔍 Match returns the first matcher that matches rel
func (s Set) Match(rel string) (*Matcher, bool) {
	for _, m := range s {
		if m.Matches(rel) {
			return m, true
		}
	}
	return nil, false
}

// Excluded reports whether any matcher in the set matches rel.
func (s Set) Excluded(rel string) bool {
	_, ok := s.Match(rel)
	return ok
}
