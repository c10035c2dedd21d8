package tuplekit

import (
	"strings"
)

// Wildcard is the identifier used for "any subject" references, both in a
// model's direct type list and in a tuple's user id (e.g. "user:*").
const Wildcard = "*"

// ObjectRef is a typed reference to an object.
// Examples: "document:readme", "team:platform", "user:alice"
type ObjectRef struct {
	Type string // The object type (e.g., "document", "team", "user")
	ID   string // The object identifier
}

// NewObjectRef creates a new ObjectRef.
func NewObjectRef(objectType, id string) ObjectRef {
	return ObjectRef{Type: objectType, ID: id}
}

// String returns the canonical string representation: "type:id"
func (o ObjectRef) String() string {
	return o.Type + ":" + o.ID
}

// IsZero returns true if the reference is empty.
func (o ObjectRef) IsZero() bool {
	return o.Type == "" && o.ID == ""
}

// ParseObjectRef parses a "type:id" string into an ObjectRef.
// The parse is round-trip safe: ParseObjectRef(ref.String()) yields ref.
func ParseObjectRef(s string) (ObjectRef, error) {
	idx := strings.Index(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return ObjectRef{}, NewError(ErrInvalidRef, "object reference must be type:id").WithObject(s)
	}
	ref := ObjectRef{Type: s[:idx], ID: s[idx+1:]}
	if err := validateTypeName(ref.Type); err != nil {
		return ObjectRef{}, err
	}
	if err := validateID(ref.ID); err != nil {
		return ObjectRef{}, err
	}
	return ref, nil
}

// UserRef is the user side of a relationship tuple. It is either a direct
// object reference ("user:alice") or a userset reference
// ("team:platform#member" — all users holding "member" on team:platform).
type UserRef struct {
	Object   ObjectRef
	Relation string // set only for userset references
}

// NewUserRef creates a direct user reference (not a userset).
func NewUserRef(userType, id string) UserRef {
	return UserRef{Object: ObjectRef{Type: userType, ID: id}}
}

// NewUsersetRef creates a userset user reference.
func NewUsersetRef(userType, id, relation string) UserRef {
	return UserRef{Object: ObjectRef{Type: userType, ID: id}, Relation: relation}
}

// String returns the canonical string representation.
// Direct: "user:alice", Userset: "team:platform#member"
func (u UserRef) String() string {
	if u.Relation == "" {
		return u.Object.String()
	}
	return u.Object.String() + "#" + u.Relation
}

// IsUserset returns true if this reference is a userset.
func (u UserRef) IsUserset() bool {
	return u.Relation != ""
}

// IsWildcard returns true for public references like "user:*".
func (u UserRef) IsWildcard() bool {
	return u.Object.ID == Wildcard && u.Relation == ""
}

// ParseUserRef parses "type:id" or "type:id#relation" into a UserRef.
// The parse is round-trip safe: ParseUserRef(ref.String()) yields ref.
func ParseUserRef(s string) (UserRef, error) {
	rest := s
	relation := ""
	if idx := strings.Index(s, "#"); idx >= 0 {
		rest = s[:idx]
		relation = s[idx+1:]
		if relation == "" {
			return UserRef{}, NewError(ErrInvalidRef, "userset reference has empty relation").WithUser(s)
		}
		if err := validateRelationName(relation); err != nil {
			return UserRef{}, err
		}
	}
	obj, err := ParseObjectRef(rest)
	if err != nil {
		return UserRef{}, NewError(ErrInvalidRef, "user reference must be type:id or type:id#relation").WithUser(s)
	}
	return UserRef{Object: obj, Relation: relation}, nil
}

// TupleKey is a relationship fact: user holds relation to object.
//
// Examples:
//   - user:alice viewer document:readme
//   - team:platform#member viewer document:readme (every platform member)
//   - folder:home parent document:readme (the document's parent folder)
type TupleKey struct {
	User     UserRef
	Relation string
	Object   ObjectRef
}

// NewTupleKey creates a tuple key with a direct user.
func NewTupleKey(userType, userID, relation, objectType, objectID string) TupleKey {
	return TupleKey{
		User:     NewUserRef(userType, userID),
		Relation: relation,
		Object:   NewObjectRef(objectType, objectID),
	}
}

// NewUsersetTupleKey creates a tuple key whose user is a userset reference.
func NewUsersetTupleKey(userType, userID, userRelation, relation, objectType, objectID string) TupleKey {
	return TupleKey{
		User:     NewUsersetRef(userType, userID, userRelation),
		Relation: relation,
		Object:   NewObjectRef(objectType, objectID),
	}
}

// String returns the canonical representation: "user#relation@object".
func (t TupleKey) String() string {
	return t.User.String() + "#" + t.Relation + "@" + t.Object.String()
}

// Equal reports whether two tuple keys carry the same fact.
func (t TupleKey) Equal(other TupleKey) bool {
	return t.User == other.User && t.Relation == other.Relation && t.Object == other.Object
}

// Validate checks that every component of the key is well formed.
func (t TupleKey) Validate() error {
	if err := validateTypeName(t.User.Object.Type); err != nil {
		return NewError(ErrInvalidRef, "invalid tuple user type").WithUser(t.User.String())
	}
	if err := validateID(t.User.Object.ID); err != nil {
		return NewError(ErrInvalidRef, "invalid tuple user id").WithUser(t.User.String())
	}
	if t.User.Relation != "" {
		if err := validateRelationName(t.User.Relation); err != nil {
			return NewError(ErrInvalidRef, "invalid tuple user relation").WithUser(t.User.String())
		}
	}
	if err := validateRelationName(t.Relation); err != nil {
		return NewError(ErrInvalidRef, "invalid tuple relation").WithRelation(t.Relation)
	}
	if err := validateTypeName(t.Object.Type); err != nil {
		return NewError(ErrInvalidRef, "invalid tuple object type").WithObject(t.Object.String())
	}
	if t.Object.ID == Wildcard {
		return NewError(ErrInvalidRef, "tuple object id cannot be a wildcard").WithObject(t.Object.String())
	}
	if err := validateID(t.Object.ID); err != nil {
		return NewError(ErrInvalidRef, "invalid tuple object id").WithObject(t.Object.String())
	}
	return nil
}
