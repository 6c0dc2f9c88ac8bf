package stdlib

import (
	"math/rand"

	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/value"
)

// registerMath installs the math module's two natives, `max` and
// `randomInt`.
func registerMath(mod *module.Module) {
	mod.RegisterNative("max", maxNative)
	mod.RegisterNative("randomInt", randomIntNative)
}

// maxNative is variadic and float-coercing: every argument is
// converted to a float and the result is always a float, regardless of
// whether the inputs were integers.
func maxNative(_ *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) == 0 {
		return value.Unit(), langerr.Type(langerr.NoPos(), "max expects at least one numeric argument")
	}
	best, ok := convertFloat(args[0])
	if !ok {
		return value.Unit(), langerr.Type(langerr.NoPos(), "max: argument 1 is not numeric")
	}
	for i, a := range args[1:] {
		f, ok := convertFloat(a)
		if !ok {
			return value.Unit(), langerr.Type(langerr.NoPos(), "max: argument %d is not numeric", i+2)
		}
		if f > best {
			best = f
		}
	}
	return value.Float(best), nil
}

func convertFloat(d value.Dynamic) (float64, bool) {
	switch d.Kind {
	case value.KindInteger:
		return float64(d.Int), true
	case value.KindFloat:
		return d.Float, true
	}
	return 0, false
}

func randomIntNative(_ *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	if len(args) != 2 || args[0].Kind != value.KindInteger || args[1].Kind != value.KindInteger {
		return value.Unit(), langerr.Type(langerr.NoPos(), "randomInt expects (min, max) integers")
	}
	lo, hi := args[0].Int, args[1].Int
	if hi < lo {
		return value.Unit(), langerr.Type(langerr.NoPos(), "randomInt: max %d is less than min %d", hi, lo)
	}
	n := lo + rand.Int63n(hi-lo+1)
	return value.Integer(n), nil
}
