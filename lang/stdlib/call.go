package stdlib

import (
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/value"
)

// registerCall installs std's `call(name, args...)`, the supplemented
// feature (SPEC_FULL.md §4) letting a callee name be chosen at runtime
// while still going through the normal three-stage dispatch.
func registerCall(mod *module.Module) {
	mod.RegisterNative("call", callNative)
}

func callNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) == 0 || args[0].Kind != value.KindString {
		return value.Unit(), langerr.Type(langerr.NoPos(), "call expects (name, args...)")
	}
	name := args[0].Str
	rest := make([]*value.Value, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = value.NewImmutable(a)
	}
	v, err := ctx.Invoke(&value.FnPtr{Name: name}, rest)
	if err != nil {
		return value.Unit(), err
	}
	return v.AsDynamic(), nil
}
