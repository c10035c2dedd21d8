package tuplekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseObjectRef tests object reference parsing
func TestParseObjectRef(t *testing.T) {
	ref, err := ParseObjectRef("document:readme")
	require.NoError(t, err)
	assert.Equal(t, "document", ref.Type)
	assert.Equal(t, "readme", ref.ID)
	assert.Equal(t, "document:readme", ref.String())

	// Ids may contain separators that are not reserved
	ref, err = ParseObjectRef("doc:a-b_c.d")
	require.NoError(t, err)
	assert.Equal(t, "a-b_c.d", ref.ID)
}

// TestParseObjectRefInvalid tests malformed object references
func TestParseObjectRefInvalid(t *testing.T) {
	cases := []string{
		"",
		"document",
		"document:",
		":readme",
		"123:readme",
		"document:read me",
		"document:read#me",
	}
	for _, input := range cases {
		_, err := ParseObjectRef(input)
		assert.Error(t, err, "input %q should not parse", input)
		assert.True(t, IsInvalidRef(err), "input %q should yield ErrInvalidRef", input)
	}
}

// TestParseUserRef tests direct and userset user references
func TestParseUserRef(t *testing.T) {
	u, err := ParseUserRef("user:alice")
	require.NoError(t, err)
	assert.False(t, u.IsUserset())
	assert.False(t, u.IsWildcard())
	assert.Equal(t, "user:alice", u.String())

	u, err = ParseUserRef("team:platform#member")
	require.NoError(t, err)
	assert.True(t, u.IsUserset())
	assert.Equal(t, "team", u.Object.Type)
	assert.Equal(t, "platform", u.Object.ID)
	assert.Equal(t, "member", u.Relation)
	assert.Equal(t, "team:platform#member", u.String())

	u, err = ParseUserRef("user:*")
	require.NoError(t, err)
	assert.True(t, u.IsWildcard())
}

// TestParseUserRefRoundTrip tests that parse and String are inverses
func TestParseUserRefRoundTrip(t *testing.T) {
	inputs := []string{
		"user:alice",
		"user:*",
		"team:platform#member",
		"folder:2024-q1#viewer",
	}
	for _, input := range inputs {
		u, err := ParseUserRef(input)
		require.NoError(t, err)
		assert.Equal(t, input, u.String())

		again, err := ParseUserRef(u.String())
		require.NoError(t, err)
		assert.Equal(t, u, again)
	}
}

// TestParseUserRefInvalid tests malformed user references
func TestParseUserRefInvalid(t *testing.T) {
	cases := []string{
		"",
		"user",
		"user:alice#",
		"user:alice#bad relation",
		"#member",
	}
	for _, input := range cases {
		_, err := ParseUserRef(input)
		assert.Error(t, err, "input %q should not parse", input)
	}
}

// TestTupleKeyString tests the canonical tuple representation
func TestTupleKeyString(t *testing.T) {
	key := NewTupleKey("user", "alice", "viewer", "document", "readme")
	assert.Equal(t, "user:alice#viewer@document:readme", key.String())

	userset := NewUsersetTupleKey("team", "platform", "member", "viewer", "document", "readme")
	assert.Equal(t, "team:platform#member#viewer@document:readme", userset.String())
}

// TestTupleKeyEqual tests fact equality
func TestTupleKeyEqual(t *testing.T) {
	a := NewTupleKey("user", "alice", "viewer", "document", "readme")
	b := NewTupleKey("user", "alice", "viewer", "document", "readme")
	c := NewTupleKey("user", "bob", "viewer", "document", "readme")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewUsersetTupleKey("user", "alice", "member", "viewer", "document", "readme")))
}

// TestTupleKeyValidate tests component validation
func TestTupleKeyValidate(t *testing.T) {
	assert.NoError(t, NewTupleKey("user", "alice", "viewer", "document", "readme").Validate())
	assert.NoError(t, NewUsersetTupleKey("team", "platform", "member", "viewer", "document", "readme").Validate())

	// Wildcard user ids are valid tuples (public grants)
	assert.NoError(t, NewTupleKey("user", "*", "viewer", "document", "readme").Validate())

	// Wildcard object ids are not
	err := NewTupleKey("user", "alice", "viewer", "document", "*").Validate()
	assert.True(t, IsInvalidRef(err))

	// Bad components
	assert.Error(t, NewTupleKey("", "alice", "viewer", "document", "readme").Validate())
	assert.Error(t, NewTupleKey("user", "", "viewer", "document", "readme").Validate())
	assert.Error(t, NewTupleKey("user", "alice", "", "document", "readme").Validate())
	assert.Error(t, NewTupleKey("user", "alice", "viewer", "document", "").Validate())
	assert.Error(t, NewTupleKey("user", "alice", "9viewer", "document", "readme").Validate())
	assert.Error(t, NewUsersetTupleKey("team", "platform", "bad name", "viewer", "document", "readme").Validate())
}

// TestRelationTupleRoundTrip tests row/key conversion
func TestRelationTupleRoundTrip(t *testing.T) {
	key := NewUsersetTupleKey("team", "platform", "member", "viewer", "document", "readme")
	rt := newRelationTuple(key, 42)

	assert.NotEmpty(t, rt.ID)
	assert.Equal(t, int64(42), rt.CreatedTxid)
	assert.True(t, rt.IsLive())
	assert.Equal(t, key, rt.Key())

	rt.DeletedTxid = 43
	assert.False(t, rt.IsLive())
}
