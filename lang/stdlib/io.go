package stdlib

import (
	"strings"

	"github.com/titpetric/kts/lang/host"
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/value"
)

// registerIO installs std's print/println and the readLine/Int/Float/
// String family, routed through the active task's Logger (spec.md §4.H)
// and the Host's stdin reader (§4.I) respectively.
func registerIO(mod *module.Module) {
	mod.RegisterNative("print", printNative)
	mod.RegisterNative("println", printNative)
	mod.RegisterNative("readLine", readLineNative)
	mod.RegisterNative("readInt", readIntNative)
	mod.RegisterNative("readFloat", readFloatNative)
	mod.RegisterNative("readString", readStringNative)
}

func joinArgs(args []value.Dynamic) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Display()
	}
	return strings.Join(parts, " ")
}

func printNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	text := joinArgs(args)
	if log := loggerFrom(ctx); log != nil {
		log.TaskOut(taskNameOr(ctx, "main"), text)
	}
	return value.Unit(), nil
}

func stdinFrom(ctx *pipectx.Context) (host.StdinReader, error) {
	h := hostFrom(ctx)
	if h == nil {
		return nil, langerr.Host("no host is registered in this context")
	}
	return h.Stdin(), nil
}

func readLineNative(ctx *pipectx.Context, _ []value.Dynamic) (value.Dynamic, error) {
	in, err := stdinFrom(ctx)
	if err != nil {
		return value.Unit(), err
	}
	s, err := in.ReadLine()
	if err != nil {
		return value.Unit(), langerr.Host("readLine: %v", err)
	}
	return value.String(s), nil
}

func readStringNative(ctx *pipectx.Context, _ []value.Dynamic) (value.Dynamic, error) {
	in, err := stdinFrom(ctx)
	if err != nil {
		return value.Unit(), err
	}
	s, err := in.ReadString()
	if err != nil {
		return value.Unit(), langerr.Host("readString: %v", err)
	}
	return value.String(s), nil
}

func readIntNative(ctx *pipectx.Context, _ []value.Dynamic) (value.Dynamic, error) {
	in, err := stdinFrom(ctx)
	if err != nil {
		return value.Unit(), err
	}
	n, err := in.ReadInt()
	if err != nil {
		return value.Unit(), langerr.Host("readInt: %v", err)
	}
	return value.Integer(n), nil
}

func readFloatNative(ctx *pipectx.Context, _ []value.Dynamic) (value.Dynamic, error) {
	in, err := stdinFrom(ctx)
	if err != nil {
		return value.Unit(), err
	}
	f, err := in.ReadFloat()
	if err != nil {
		return value.Unit(), langerr.Host("readFloat: %v", err)
	}
	return value.Float(f), nil
}
