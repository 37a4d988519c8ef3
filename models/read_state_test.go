package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBySetAddKeepsOrderAndUniqueness(t *testing.T) {
	var s ReadBySet
	assert.True(t, s.Add("carol"))
	assert.True(t, s.Add("alice"))
	assert.False(t, s.Add("carol"))
	assert.True(t, s.Add("bob"))

	assert.Equal(t, []string{"alice", "bob", "carol"}, s.Slice())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("bob"))
	assert.False(t, s.Has("dave"))
}

func TestReadBySetUnionIsIdempotent(t *testing.T) {
	s := NewReadBySet("a")
	assert.True(t, s.Union(NewReadBySet("b", "c")))
	assert.False(t, s.Union(NewReadBySet("b", "c")))
	assert.Equal(t, []string{"a", "b", "c"}, s.Slice())
}

func TestReadBySetStrictSubset(t *testing.T) {
	ab := NewReadBySet("a", "b")
	abc := NewReadBySet("a", "b", "c")
	ac := NewReadBySet("a", "c")

	assert.True(t, ab.StrictSubsetOf(abc))
	assert.False(t, abc.StrictSubsetOf(ab))
	assert.False(t, ab.StrictSubsetOf(ab), "equal sets are not strict subsets")
	assert.False(t, ab.StrictSubsetOf(NewReadBySet("a", "c", "d")))
	assert.True(t, ReadBySet{}.StrictSubsetOf(ac))
}

func TestReadBySetCloneIsIndependent(t *testing.T) {
	s := NewReadBySet("a")
	c := s.Clone()
	c.Add("b")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, c.Len())
}

func TestReadBySetJSON(t *testing.T) {
	raw, err := json.Marshal(ReadBySet{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	var s ReadBySet
	require.NoError(t, json.Unmarshal([]byte(`["b","a","b"]`), &s))
	assert.Equal(t, []string{"a", "b"}, s.Slice())

	raw, err = json.Marshal(Message{ID: 7, ReadBy: s})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"read_by":["a","b"]`)
}

func TestCreateMessageRequestValidate(t *testing.T) {
	req := CreateMessageRequest{Content: "  hello  "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "hello", req.Content)

	blank := CreateMessageRequest{Content: " \n\t "}
	assert.Error(t, blank.Validate())

	long := CreateMessageRequest{Content: strings.Repeat("ğ", MaxContentLength+1)}
	assert.Error(t, long.Validate())

	exact := CreateMessageRequest{Content: strings.Repeat("ğ", MaxContentLength)}
	assert.NoError(t, exact.Validate())
}

func TestMarkReadRequestValidate(t *testing.T) {
	assert.Error(t, (&MarkReadRequest{}).Validate())
	assert.Error(t, (&MarkReadRequest{MessageIDs: []int64{}}).Validate())
	assert.Error(t, (&MarkReadRequest{MessageIDs: []int64{3, 0}}).Validate())
	assert.NoError(t, (&MarkReadRequest{MessageIDs: []int64{3, 4}}).Validate())
}
