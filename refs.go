package tuplekit

import (
	"strings"
)

// SubjectTypeRef is one entry in a direct rewrite's allowed-type list.
//
// Forms:
//   - bare type: "user" — direct users of that type
//   - userset: "team#member" — usersets of that type and relation
//   - wildcard: "*" — any direct user type
type SubjectTypeRef struct {
	Type     string // subject type, empty for the bare wildcard
	Relation string // set for userset references like team#member
	Wildcard bool   // true for the bare "*" entry
}

// String returns the canonical form used in DSL source.
func (r SubjectTypeRef) String() string {
	if r.Wildcard {
		return Wildcard
	}
	if r.Relation != "" {
		return r.Type + "#" + r.Relation
	}
	return r.Type
}

// AllowsDirect reports whether a direct (non-userset) user of the given type
// may be assigned through this entry.
func (r SubjectTypeRef) AllowsDirect(userType string) bool {
	if r.Wildcard {
		return true
	}
	return r.Relation == "" && r.Type == userType
}

// AllowsUserset reports whether a userset user reference may be assigned
// through this entry.
func (r SubjectTypeRef) AllowsUserset(u UserRef) bool {
	return r.Relation != "" && r.Type == u.Object.Type && r.Relation == u.Relation
}

// ParseSubjectTypeRef parses "user", "team#member" or "*".
func ParseSubjectTypeRef(s string) (SubjectTypeRef, error) {
	if s == Wildcard {
		return SubjectTypeRef{Wildcard: true}, nil
	}
	if idx := strings.Index(s, "#"); idx >= 0 {
		ref := SubjectTypeRef{Type: s[:idx], Relation: s[idx+1:]}
		if err := validateTypeName(ref.Type); err != nil {
			return SubjectTypeRef{}, err
		}
		if err := validateRelationName(ref.Relation); err != nil {
			return SubjectTypeRef{}, err
		}
		return ref, nil
	}
	if err := validateTypeName(s); err != nil {
		return SubjectTypeRef{}, err
	}
	return SubjectTypeRef{Type: s}, nil
}

// allowsUser reports whether any entry in the list could admit the user:
// directly, via the wildcard, or through a userset entry whose membership is
// resolved against stored tuples.
func allowsUser(refs []SubjectTypeRef, u UserRef) bool {
	for _, r := range refs {
		if r.Wildcard {
			return true
		}
		if u.IsUserset() {
			if r.AllowsUserset(u) {
				return true
			}
			continue
		}
		if r.AllowsDirect(u.Object.Type) {
			return true
		}
		// A userset entry can still admit the user through membership;
		// the recursive evaluation decides.
		if r.Relation != "" {
			return true
		}
	}
	return false
}

// validateTypeName checks a type name: letters, digits and underscores,
// starting with a letter.
func validateTypeName(name string) error {
	if name == "" {
		return NewError(ErrInvalidRef, "type name cannot be empty")
	}
	if !isIdentStart(rune(name[0])) {
		return NewError(ErrInvalidRef, "type name must start with a letter")
	}
	for _, c := range name {
		if !isIdentChar(c) {
			return NewError(ErrInvalidRef, "type name contains invalid character")
		}
	}
	return nil
}

// validateRelationName checks a relation name under the same rules as types.
func validateRelationName(name string) error {
	if name == "" {
		return NewError(ErrInvalidRef, "relation name cannot be empty")
	}
	if !isIdentStart(rune(name[0])) {
		return NewError(ErrInvalidRef, "relation name must start with a letter")
	}
	for _, c := range name {
		if !isIdentChar(c) {
			return NewError(ErrInvalidRef, "relation name contains invalid character")
		}
	}
	return nil
}

// validateID checks an object id. Ids are free-form except for the separator
// characters and whitespace; "*" is permitted for wildcard tuple users.
func validateID(id string) error {
	if id == "" {
		return NewError(ErrInvalidRef, "id cannot be empty")
	}
	if id == Wildcard {
		return nil
	}
	for _, c := range id {
		if c == ':' || c == '#' || c == '@' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			return NewError(ErrInvalidRef, "id contains invalid character")
		}
	}
	return nil
}

func isIdentStart(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '_'
}
