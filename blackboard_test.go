package behaviortree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Blackboard_Get_Set_Local(t *testing.T) {
	bb := NewBlackboard()
	bb.Set("x", 42)

	v, ok := bb.Get("x")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func Test_Blackboard_Get_Missing_Key(t *testing.T) {
	bb := NewBlackboard()
	_, ok := bb.Get("missing")
	assert.False(t, ok)
}

func Test_Blackboard_Child_Falls_Through_To_Parent(t *testing.T) {
	parent := NewBlackboard()
	parent.Set("shared", "parent-value")

	child := NewChildBlackboard(parent)
	v, ok := child.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "parent-value", v)
}

func Test_Blackboard_Child_Local_Shadows_Parent(t *testing.T) {
	parent := NewBlackboard()
	parent.Set("shared", "parent-value")

	child := NewChildBlackboard(parent)
	child.Set("shared", "child-value")

	v, ok := child.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "child-value", v)
}

func Test_Blackboard_Remapping_Redirects_Parent_Lookup(t *testing.T) {
	parent := NewBlackboard()
	parent.Set("external_name", "value")

	child := NewChildBlackboard(parent)
	child.ExtendRemappings(map[string]string{"internal_name": "external_name"})

	v, ok := child.Get("internal_name")
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func Test_Blackboard_ExtendRemappings_Merges(t *testing.T) {
	bb := NewChildBlackboard(NewBlackboard())
	bb.ExtendRemappings(map[string]string{"a": "ext_a"})
	bb.ExtendRemappings(map[string]string{"b": "ext_b"})

	bb.parent.Set("ext_a", 1)
	bb.parent.Set("ext_b", 2)

	va, ok := bb.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, va)

	vb, ok := bb.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, vb)
}
