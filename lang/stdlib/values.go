package stdlib

import (
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/value"
)

// registerValues installs std's generic value operations: len, type,
// clone, append, remove, plus the true/false constant functions the
// parser desugars boolean literals into.
func registerValues(mod *module.Module) {
	mod.RegisterNative("true", func(_ *pipectx.Context, _ []value.Dynamic) (value.Dynamic, error) {
		return value.Boolean(true), nil
	})
	mod.RegisterNative("false", func(_ *pipectx.Context, _ []value.Dynamic) (value.Dynamic, error) {
		return value.Boolean(false), nil
	})
	mod.RegisterNative("len", lenNative)
	mod.RegisterNative("type", typeNative)
	mod.RegisterNative("clone", cloneNative)
	mod.RegisterNative("append", appendNative)
	mod.RegisterNative("remove", removeNative)
}

func lenNative(_ *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) != 1 {
		return value.Unit(), langerr.Type(langerr.NoPos(), "len expects one argument")
	}
	switch d := args[0]; d.Kind {
	case value.KindArray:
		return value.Integer(int64(len(d.Array))), nil
	case value.KindMap:
		return value.Integer(int64(d.Map.Len())), nil
	case value.KindString:
		return value.Integer(int64(len([]rune(d.Str)))), nil
	default:
		return value.Unit(), langerr.Type(langerr.NoPos(), "len: unsupported type %s", d.Kind)
	}
}

func typeNative(_ *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) != 1 {
		return value.Unit(), langerr.Type(langerr.NoPos(), "type expects one argument")
	}
	return value.String(args[0].Kind.String()), nil
}

// deepClone recursively copies a Dynamic so the result shares no Value
// cells with its source, breaking the aliasing that array/map/struct
// literals otherwise preserve (lang/interp's evalElement).
func deepClone(d value.Dynamic) value.Dynamic {
	switch d.Kind {
	case value.KindArray:
		elems := make([]*value.Value, len(d.Array))
		for i, v := range d.Array {
			elems[i] = value.NewMutable(deepClone(v.AsDynamic()))
		}
		return value.NewArray(elems)
	case value.KindMap:
		out := value.NewOrderedMap()
		for _, k := range d.Map.Keys() {
			v, _ := d.Map.Get(k)
			out.Set(k, value.NewMutable(deepClone(v.AsDynamic())))
		}
		return value.NewMap(out)
	case value.KindStruct:
		fields := make(map[string]*value.Value, len(d.Struct.Fields))
		for name, v := range d.Struct.Fields {
			fields[name] = value.NewMutable(deepClone(v.AsDynamic()))
		}
		return value.NewStruct(&value.Struct{ClassName: d.Struct.ClassName, Fields: fields})
	default:
		return d
	}
}

func cloneNative(_ *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) != 1 {
		return value.Unit(), langerr.Type(langerr.NoPos(), "clone expects one argument")
	}
	return deepClone(args[0]), nil
}

func appendNative(_ *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) != 2 || args[0].Kind != value.KindArray {
		return value.Unit(), langerr.Type(langerr.NoPos(), "append expects (array, value)")
	}
	src := args[0].Array
	out := make([]*value.Value, len(src), len(src)+1)
	copy(out, src)
	out = append(out, value.NewMutable(args[1]))
	return value.NewArray(out), nil
}

func removeNative(_ *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) != 2 || args[0].Kind != value.KindArray || args[1].Kind != value.KindInteger {
		return value.Unit(), langerr.Type(langerr.NoPos(), "remove expects (array, index)")
	}
	src := args[0].Array
	i := int(args[1].Int)
	if i < 0 || i >= len(src) {
		return value.Unit(), langerr.Type(langerr.NoPos(), "remove: index %d out of bounds (len %d)", i, len(src))
	}
	out := make([]*value.Value, 0, len(src)-1)
	out = append(out, src[:i]...)
	out = append(out, src[i+1:]...)
	return value.NewArray(out), nil
}
