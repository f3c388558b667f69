// Package scope parses the colon-delimited selectors used to target scrape runs.
package scope

import (
	"fmt"
	"strings"
)

// Wildcard matches any tier, jurisdiction code, or entity.
const Wildcard = "*"

// Selector identifies which jurisdictions and entity types a scrape targets.
// A selector always has exactly three components; missing components are
// wildcards.
type Selector struct {
	Tier   string
	Code   string
	Entity string
}

// String renders the selector back into its tier:code:entity form.
func (s Selector) String() string {
	return s.Tier + ":" + s.Code + ":" + s.Entity
}

// Matches reports whether the selector covers the given tier, code, and entity.
func (s Selector) Matches(tier, code, entity string) bool {
	return matchField(s.Tier, tier) && matchField(s.Code, code) && matchField(s.Entity, entity)
}

// MatchesAny is Matches against a scraper that covers several jurisdiction
// codes: the code component matches when it is the wildcard or equals any of
// the listed codes.
func (s Selector) MatchesAny(tier string, codes []string, entity string) bool {
	if !matchField(s.Tier, tier) || !matchField(s.Entity, entity) {
		return false
	}
	if s.Code == Wildcard {
		return true
	}
	for _, code := range codes {
		if strings.EqualFold(s.Code, code) {
			return true
		}
	}
	return false
}

func matchField(pattern, value string) bool {
	return pattern == Wildcard || strings.EqualFold(pattern, value)
}

// ParseError reports a malformed scope string. It is fatal at the CLI
// boundary; scopes are never silently defaulted.
type ParseError struct {
	Scope  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid scope %q: %s", e.Scope, e.Reason)
}

// Parse splits a tier:code:entity scope string into a Selector, padding
// missing trailing components with wildcards. A scope with more than three
// components is rejected rather than truncated, so a typo like
// "municipal:on:toronto:bills:extra" surfaces instead of scraping the wrong
// thing.
func Parse(raw string) (Selector, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Selector{}, &ParseError{Scope: raw, Reason: "empty scope"}
	}

	parts := strings.Split(trimmed, ":")
	if len(parts) > 3 {
		return Selector{}, &ParseError{
			Scope:  raw,
			Reason: fmt.Sprintf("expected at most 3 components, got %d", len(parts)),
		}
	}
	for len(parts) < 3 {
		parts = append(parts, Wildcard)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Selector{}, &ParseError{Scope: raw, Reason: "empty scope component"}
		}
		parts[i] = strings.ToLower(p)
	}

	return Selector{Tier: parts[0], Code: parts[1], Entity: parts[2]}, nil
}
