package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexedName(t *testing.T) {
	ref := RepositoryRef{Owner: "alice", Name: "notes"}
	assert.Equal(t, "alice__notes__analysis.jl", IndexedName(ref, "analysis.jl"))
	assert.Equal(t, "alice__notes", ref.DirName())
}

func TestEncodeComponent_NeverContainsSeparator(t *testing.T) {
	for _, name := range []string{"a_b", "a__b", "_x", "x_", "___", "plain"} {
		enc := EncodeComponent(name)
		assert.NotContains(t, enc, Separator, "encoding of %q", name)
		assert.Equal(t, name, DecodeComponent(enc))
	}
}

// Without escaping, repo "a__b" + "c.jl" and repo "a" + "b__c.jl" would
// flatten to the same name.
func TestIndexedName_Injective(t *testing.T) {
	n1 := IndexedName(RepositoryRef{Owner: "o", Name: "a__b"}, "c.jl")
	n2 := IndexedName(RepositoryRef{Owner: "o", Name: "a"}, "b__c.jl")
	assert.NotEqual(t, n1, n2)

	n3 := IndexedName(RepositoryRef{Owner: "o", Name: "a_"}, "_c.jl")
	n4 := IndexedName(RepositoryRef{Owner: "o", Name: "a"}, "__c.jl")
	assert.NotEqual(t, n3, n4)
}

func TestParseIndexedName_RoundTrip(t *testing.T) {
	cases := []struct {
		ref  RepositoryRef
		file string
	}{
		{RepositoryRef{Owner: "alice", Name: "notes"}, "analysis.jl"},
		{RepositoryRef{Owner: "bob-smith", Name: "my_repo"}, "a__b.jl"},
		{RepositoryRef{Owner: "x", Name: "_lead"}, "_f.jl"},
		{RepositoryRef{Owner: "x", Name: "trail_"}, "f.jl"},
		{RepositoryRef{Owner: "x", Name: "dots.and-dashes"}, "f.jl"},
	}
	for _, tc := range cases {
		ref, file, err := ParseIndexedName(IndexedName(tc.ref, tc.file))
		require.NoError(t, err)
		assert.Equal(t, tc.ref, ref)
		assert.Equal(t, tc.file, file)
	}
}

func TestParseIndexedName_Invalid(t *testing.T) {
	for _, name := range []string{"", "nosep.jl", "alice__notes", "alice__notes__", "bad!__r__f.jl"} {
		_, _, err := ParseIndexedName(name)
		assert.ErrorIs(t, err, ErrInvalidIndexedName, name)
	}
}

func TestRepositoryRef_Validate(t *testing.T) {
	valid := []RepositoryRef{
		{Owner: "alice", Name: "notes"},
		{Owner: "Org-42", Name: "repo.name_with-stuff"},
	}
	for _, r := range valid {
		assert.NoError(t, r.Validate(), r.String())
	}

	invalid := []RepositoryRef{
		{Owner: "", Name: "notes"},
		{Owner: "alice", Name: ""},
		{Owner: "-alice", Name: "notes"},
		{Owner: "al_ice", Name: "notes"},
		{Owner: "alice", Name: "no/tes"},
		{Owner: "alice", Name: ".."},
		{Owner: "alice", Name: "til~de"},
	}
	for _, r := range invalid {
		assert.ErrorIs(t, r.Validate(), ErrInvalidRef, r.String())
	}
}

func TestRepositoryRef_Key(t *testing.T) {
	a := RepositoryRef{Owner: "Alice", Name: "Notes"}
	b := RepositoryRef{Owner: "alice", Name: "notes"}
	assert.Equal(t, a.Key(), b.Key())
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("alice/notes")
	require.NoError(t, err)
	assert.Equal(t, RepositoryRef{Owner: "alice", Name: "notes"}, ref)

	for _, bad := range []string{"alice", "alice/", "/notes", "al ice/notes"} {
		_, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrInvalidRef, bad)
	}
}
