package stdlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titpetric/kts/lang/host"
	"github.com/titpetric/kts/lang/logger"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/sched"
	"github.com/titpetric/kts/lang/value"
)

func fakeInvoke(ctx *pipectx.Context, fn *value.FnPtr, _ []*value.Value) (*value.Value, error) {
	body := fn.Args.(func(*pipectx.Context) error)
	if err := body(ctx); err != nil {
		return nil, err
	}
	return value.NewImmutable(value.Unit()), nil
}

func deferredBody(body func(*pipectx.Context) error) value.Dynamic {
	return value.Fn(&value.FnPtr{Deferred: true, Args: body})
}

func testCtx(t *testing.T, h host.Host) *pipectx.Context {
	t.Helper()
	ctx := pipectx.Background().WithScope(pipectx.NewScope())
	ctx = ctx.WithInvoke(fakeInvoke)
	ctx = ctx.WithGlobalState(pipectx.NewGlobalState())
	ctx = ctx.WithEnv(pipectx.NewEnv(nil))
	ctx = WithHost(ctx, h)
	return ctx
}

func TestLenTypeClone(t *testing.T) {
	l, err := lenNative(nil, []value.Dynamic{value.String("hello")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), l.Int)

	ty, err := typeNative(nil, []value.Dynamic{value.Integer(1)})
	require.NoError(t, err)
	assert.Equal(t, "integer", ty.Str)

	arr := value.NewArray([]*value.Value{value.NewMutable(value.Integer(1))})
	cl, err := cloneNative(nil, []value.Dynamic{arr})
	require.NoError(t, err)
	assert.NotSame(t, arr.Array[0], cl.Array[0])
	assert.Equal(t, int64(1), cl.Array[0].AsDynamic().Int)
}

func TestAppendRemove(t *testing.T) {
	arr := value.NewArray([]*value.Value{value.NewMutable(value.Integer(1))})
	appended, err := appendNative(nil, []value.Dynamic{arr, value.Integer(2)})
	require.NoError(t, err)
	require.Len(t, appended.Array, 2)
	assert.Equal(t, int64(2), appended.Array[1].AsDynamic().Int)

	removed, err := removeNative(nil, []value.Dynamic{appended, value.Integer(0)})
	require.NoError(t, err)
	require.Len(t, removed.Array, 1)
	assert.Equal(t, int64(2), removed.Array[0].AsDynamic().Int)
}

func TestMaxAndRandomInt(t *testing.T) {
	// max is variadic and always float-coerces, even for integer inputs
	m, err := maxNative(nil, []value.Dynamic{value.Integer(3), value.Float(7.5), value.Integer(7)})
	require.NoError(t, err)
	assert.Equal(t, value.KindFloat, m.Kind)
	assert.Equal(t, 7.5, m.Float)

	m, err = maxNative(nil, []value.Dynamic{value.Integer(4)})
	require.NoError(t, err)
	assert.Equal(t, value.KindFloat, m.Kind)
	assert.Equal(t, 4.0, m.Float)

	_, err = maxNative(nil, []value.Dynamic{value.Integer(1), value.String("x")})
	assert.Error(t, err)

	r, err := randomIntNative(nil, []value.Dynamic{value.Integer(5), value.Integer(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Int)
}

func TestCallDispatchesThroughInvoke(t *testing.T) {
	ctx := testCtx(t, nil)
	var got string
	ctx = ctx.WithInvoke(func(_ *pipectx.Context, fn *value.FnPtr, args []*value.Value) (*value.Value, error) {
		got = fn.Name
		if len(args) > 0 {
			got += ":" + args[0].AsDynamic().Str
		}
		return value.NewImmutable(value.String("ok")), nil
	})
	res, err := callNative(ctx, []value.Dynamic{value.String("greet"), value.String("world")})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Str)
	assert.Equal(t, "greet:world", got)
}

func TestWorkspaceAndEnvRoundtrip(t *testing.T) {
	ctx := testCtx(t, nil)
	_, err := workspaceNative(ctx, []value.Dynamic{value.String("/tmp/proj")})
	require.NoError(t, err)
	ws, err := workspaceNative(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/proj", ws.Str)

	_, err = envNative(ctx, []value.Dynamic{value.String("FOO"), value.String("bar")})
	require.NoError(t, err)
	v, err := envNative(ctx, []value.Dynamic{value.String("FOO")})
	require.NoError(t, err)
	assert.Equal(t, "bar", v.Str)
}

func TestLayoutFolderAndTemplate(t *testing.T) {
	base := t.TempDir()
	h := host.NewDefaultHost(nil)
	ctx := testCtx(t, h)
	_, err := workspaceNative(ctx, []value.Dynamic{value.String(base)})
	require.NoError(t, err)

	sc := sched.New(logger.New(nil), nil)
	mod := New(sc).Layout()

	layoutFn, _ := mod.Lookup("layout")
	folderFn, _ := mod.Lookup("folder")
	templateFn, _ := mod.Lookup("template")
	setFn, _ := mod.Lookup("set")

	tmplPath := "greeting.txt"
	full := filepath.Join(base, "proj", tmplPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("hello ${name}"), 0o644))

	body := func(lctx *pipectx.Context) error {
		if _, err := folderFn.Native(lctx, []value.Dynamic{value.String("sub")}); err != nil {
			return err
		}
		tmplBody := func(tctx *pipectx.Context) error {
			_, err := setFn.Native(tctx, []value.Dynamic{value.String("name"), value.String("world")})
			return err
		}
		_, err := templateFn.Native(lctx, []value.Dynamic{value.String(tmplPath), deferredBody(tmplBody)})
		return err
	}
	_, err = layoutFn.Native(ctx, []value.Dynamic{value.String("proj"), deferredBody(body)})
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(base, "proj", "sub"))
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}
