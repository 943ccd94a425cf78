package domain

import (
	"errors"
	"slices"
	"strings"
)

var ErrInvalidScope = errors.New("domain: scope needs a resource and an action")

// Scope grants one action on one resource. Matching is exact: no wildcards,
// no hierarchy.
type Scope struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (s Scope) String() string { return s.Resource + ":" + s.Action }

// ParseScope parses the "resource:action" form.
func ParseScope(raw string) (Scope, error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(raw), ":")
	s := Scope{Resource: strings.TrimSpace(resource), Action: strings.TrimSpace(action)}
	if !ok || s.Resource == "" || s.Action == "" {
		return Scope{}, ErrInvalidScope
	}
	return s, nil
}

// Scopes is an ordered scope list. A nil list is unrestricted and grants
// everything; an empty non-nil list grants nothing.
type Scopes []Scope

// ParseScopes parses a list of "resource:action" strings.
func ParseScopes(raw []string) (Scopes, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(Scopes, 0, len(raw))
	for _, r := range raw {
		s, err := ParseScope(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (s Scopes) Unrestricted() bool { return s == nil }

// Grants reports whether the list allows action on resource.
func (s Scopes) Grants(resource, action string) bool {
	if s == nil {
		return true
	}
	return slices.Contains(s, Scope{Resource: resource, Action: action})
}

// Clone deep copies s, keeping nil as nil.
func (s Scopes) Clone() Scopes {
	if s == nil {
		return nil
	}
	return append(make(Scopes, 0, len(s)), s...)
}

// Normalize trims every entry, rejects blanks and drops duplicates while
// keeping the first occurrence's position.
func (s Scopes) Normalize() (Scopes, error) {
	if s == nil {
		return nil, nil
	}
	out := make(Scopes, 0, len(s))
	seen := make(map[Scope]struct{}, len(s))
	for _, sc := range s {
		sc.Resource = strings.TrimSpace(sc.Resource)
		sc.Action = strings.TrimSpace(sc.Action)
		if sc.Resource == "" || sc.Action == "" {
			return nil, ErrInvalidScope
		}
		if _, dup := seen[sc]; dup {
			continue
		}
		seen[sc] = struct{}{}
		out = append(out, sc)
	}
	return out, nil
}

// Strings renders the list in "resource:action" form.
func (s Scopes) Strings() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	for i, sc := range s {
		out[i] = sc.String()
	}
	return out
}
