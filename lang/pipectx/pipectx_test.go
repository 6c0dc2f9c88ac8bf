package pipectx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titpetric/kts/lang/value"
)

func TestScope_LetThenAssignVisibleInSameAndInnerScope(t *testing.T) {
	outer := NewScope()
	outer.Let("x", value.NewMutable(value.Integer(1)))
	require.NoError(t, outer.Assign("x", value.Integer(2)))

	v, ok := outer.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsDynamic().Int)

	inner := outer.Child()
	v, ok = inner.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsDynamic().Int)
}

func TestScope_ShadowingLeavesOuterBindingIntact(t *testing.T) {
	outer := NewScope()
	outer.Let("x", value.NewMutable(value.Integer(1)))

	inner := outer.Child()
	inner.Let("x", value.NewMutable(value.Integer(99)))

	v, _ := inner.Lookup("x")
	assert.Equal(t, int64(99), v.AsDynamic().Int)
	v, _ = outer.Lookup("x")
	assert.Equal(t, int64(1), v.AsDynamic().Int)
}

func TestScope_AssignThroughChildMutatesOuterBinding(t *testing.T) {
	outer := NewScope()
	outer.Let("x", value.NewMutable(value.Integer(1)))

	inner := outer.Child()
	require.NoError(t, inner.Assign("x", value.Integer(5)))

	v, _ := outer.Lookup("x")
	assert.Equal(t, int64(5), v.AsDynamic().Int)
}

func TestScope_AssignUnboundFails(t *testing.T) {
	s := NewScope()
	assert.Error(t, s.Assign("missing", value.Integer(1)))
}

func TestContext_NearestFrameWins(t *testing.T) {
	ctx := Background().Push("k", "outer").Push("k", "inner")
	v, ok := ctx.Value("k")
	require.True(t, ok)
	assert.Equal(t, "inner", v)
}

func TestContext_FrameDropsWithTheReturnedContext(t *testing.T) {
	base := Background().Push("k", "outer")
	child := base.Push("k", "inner")

	v, _ := child.Value("k")
	assert.Equal(t, "inner", v)

	// discarding child restores the outer view
	v, _ = base.Value("k")
	assert.Equal(t, "outer", v)
}

func TestContext_MissingKey(t *testing.T) {
	_, ok := Background().Value("nope")
	assert.False(t, ok)
}

func TestEnv_ChildCopyIsIsolated(t *testing.T) {
	parent := NewEnv(nil)
	parent.Set("A", "1")

	child := NewEnv(parent)
	child.Set("A", "2")
	child.Set("B", "3")

	v, _ := parent.Get("A")
	assert.Equal(t, "1", v)
	v, _ = child.Get("A")
	assert.Equal(t, "2", v)
	_, ok := parent.Get("B")
	assert.False(t, ok)
}

func TestEnv_Environ(t *testing.T) {
	e := NewEnv(nil)
	e.Set("A", "1")
	assert.Equal(t, []string{"A=1"}, e.Environ())
}

func TestGlobalState_GetOr(t *testing.T) {
	g := NewGlobalState()
	assert.Equal(t, "all", g.GetOr("path_pipeline", "all"))
	g.Set("path_pipeline", "build")
	assert.Equal(t, "build", g.GetOr("path_pipeline", "all"))
}
