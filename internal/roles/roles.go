// Package roles models the account capability tags that are persisted as a
// comma-separated string on the users table. The string is parsed once at the
// authentication boundary; everything past it works with a Set.
package roles

import "strings"

type Role string

const (
	Admin   Role = "ADMIN"
	User    Role = "USER"
	Private Role = "PRIVATE"
	Dealer  Role = "DEALER"
)

type Set map[Role]struct{}

func Parse(s string) Set {
	set := Set{}
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		switch Role(part) {
		case Admin, User, Private, Dealer:
			set[Role(part)] = struct{}{}
		}
	}
	return set
}

func (s Set) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s Set) Add(r Role) Set {
	s[r] = struct{}{}
	return s
}

func (s Set) Remove(r Role) Set {
	delete(s, r)
	return s
}

// String renders the set back into storage form with a stable order.
func (s Set) String() string {
	var parts []string
	for _, r := range []Role{Admin, User, Private, Dealer} {
		if s.Has(r) {
			parts = append(parts, string(r))
		}
	}
	return strings.Join(parts, ",")
}
