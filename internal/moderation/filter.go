// Package moderation screens chat for blocked language. Matching runs
// over both the raw lowercased message and a copy with common separator
// characters stripped, so "b.a.d w o r d" is caught alongside "badword".
package moderation

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

var separators = regexp.MustCompile(`[\s.\-_*]+`)

// Filter is an immutable blocked-term matcher. Safe for concurrent use.
type Filter struct {
	matcher *ahocorasick.Matcher
	terms   []string
}

// NewFilter builds a Filter from the given terms. Terms are matched as
// lowercase substrings.
func NewFilter(terms []string) *Filter {
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}
	return &Filter{
		matcher: ahocorasick.NewStringMatcher(lowered),
		terms:   lowered,
	}
}

// Check returns the first blocked term found in message, or "" when the
// message is clean.
func (f *Filter) Check(message string) string {
	lowered := strings.ToLower(message)
	if term := f.match(lowered); term != "" {
		return term
	}
	return f.match(separators.ReplaceAllString(lowered, ""))
}

func (f *Filter) match(s string) string {
	hits := f.matcher.Match([]byte(s))
	if len(hits) == 0 {
		return ""
	}
	return f.terms[hits[0]]
}
