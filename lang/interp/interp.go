// Package interp walks the parsed AST against a module.Registry and a
// pipectx.Context, implementing the language's expression/statement
// semantics, function dispatch, and the value ownership rules of
// lang/value.
package interp

import (
	"fmt"
	"strings"

	"github.com/titpetric/kts/lang/ast"
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/parser"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/token"
	"github.com/titpetric/kts/lang/value"
)

// ImportResolver loads the source of a named, non-built-in module, the
// two-stage project/package-dir lookup lang/engine implements. Kept as
// a function type here so the interpreter itself never touches the
// filesystem.
type ImportResolver func(name string) (string, error)

// Signal reports why a statement block stopped executing early.
type Signal int

const (
	SigNone Signal = iota
	SigBreak
	SigContinue
	SigReturn
)

// Interp evaluates a program against a fixed Registry. It holds no
// per-run state itself; all mutable state lives in the Scope chain
// carried by the Context passed to every call.
type Interp struct {
	Registry *module.Registry
	Resolver ImportResolver
}

// New creates an Interp bound to reg. resolver may be nil, in which
// case `import` of a module absent from reg.Modules always fails.
func New(reg *module.Registry, resolver ImportResolver) *Interp {
	return &Interp{Registry: reg, Resolver: resolver}
}

// RootContext builds the Context a top-level program runs in: scope
// bound, and the Invoke hook wired back to this Interp so natives in
// other packages (lang/sched, lang/stdlib) can run deferred closures.
func (ip *Interp) RootContext(scope *pipectx.Scope) *pipectx.Context {
	ctx := pipectx.Background().WithScope(scope)
	ctx = ctx.WithInvoke(ip.Invoke)
	return ctx
}

// Run executes a top-level statement list and returns the value of its
// last expression statement (Unit if none), or the first error hit.
func (ip *Interp) Run(ctx *pipectx.Context, stmts []ast.Stmt) (*value.Value, error) {
	_, v, err := ip.execBlock(ctx, stmts)
	return v, err
}

// execBlock runs stmts in order against ctx's current scope (blocks do
// not push a new Scope; only function calls do), stopping early on
// the first non-SigNone signal or error.
func (ip *Interp) execBlock(ctx *pipectx.Context, stmts []ast.Stmt) (Signal, *value.Value, error) {
	last := value.NewImmutable(value.Unit())
	for _, s := range stmts {
		sig, v, err := ip.execStmt(ctx, s)
		if err != nil {
			return SigNone, nil, err
		}
		if v != nil {
			last = v
		}
		if sig != SigNone {
			return sig, v, nil
		}
	}
	return SigNone, last, nil
}

func (ip *Interp) execStmt(ctx *pipectx.Context, stmt ast.Stmt) (Signal, *value.Value, error) {
	switch s := stmt.(type) {
	case ast.FnCallStmt:
		if s.Call == nil || s.Call.Name == "" {
			return SigNone, nil, nil
		}
		v, err := ip.evalCall(ctx, s.Call)
		return SigNone, v, err

	case ast.Let:
		v, err := ip.Eval(ctx, s.Expr)
		if err != nil {
			return SigNone, nil, err
		}
		ctx.Scope().Let(s.Name, value.NewMutable(v.AsDynamic()))
		return SigNone, nil, nil

	case ast.Assign:
		return SigNone, nil, ip.execAssign(ctx, s)

	case ast.IndexAssign:
		return SigNone, nil, ip.execIndexAssign(ctx, s)

	case ast.Return:
		v, err := ip.Eval(ctx, s.Expr)
		if err != nil {
			return SigNone, nil, err
		}
		return SigReturn, v, nil

	case ast.If:
		return ip.execIf(ctx, s)

	case ast.While:
		return ip.execWhile(ctx, s)

	case ast.ForIn:
		return ip.execForIn(ctx, s)

	case ast.Break:
		return SigBreak, nil, nil

	case ast.Continue:
		return SigContinue, nil, nil

	case ast.Import:
		return SigNone, nil, ip.execImport(ctx, s)

	case ast.Noop:
		return SigNone, nil, nil
	}
	return SigNone, nil, fmt.Errorf("interp: unhandled statement %T", stmt)
}

// Eval evaluates a single expression to a Value.
func (ip *Interp) Eval(ctx *pipectx.Context, expr ast.Expr) (*value.Value, error) {
	switch e := expr.(type) {
	case ast.StringConstant:
		return value.NewImmutable(value.String(e.Value)), nil
	case ast.IntConstant:
		return value.NewImmutable(value.Integer(e.Value)), nil
	case ast.FloatConstant:
		return value.NewImmutable(value.Float(e.Value)), nil
	case ast.Variable:
		v, ok := ctx.Scope().Lookup(e.Name)
		if !ok {
			return nil, langerr.Resolve(e.Pos, "variable %q is undefined", e.Name)
		}
		return v, nil
	case ast.FnCallExpr:
		return ip.evalCall(ctx, &e)
	case ast.FnClosureExpr:
		return value.NewImmutable(value.Fn(&value.FnPtr{Name: e.Def.Name, Def: e.Def, Deferred: true})), nil
	case ast.BinaryExpr:
		return ip.evalBinary(ctx, e)
	case ast.Array:
		return ip.evalArray(ctx, e)
	case ast.Map:
		return ip.evalMap(ctx, e)
	case ast.Index:
		return ip.evalIndex(ctx, e)
	case ast.Struct:
		return ip.evalStruct(ctx, e)
	case ast.MemberAccess:
		return ip.evalMember(ctx, e)
	}
	return nil, fmt.Errorf("interp: unhandled expression %T", expr)
}

// evalArg evaluates one call argument. A trailing-closure literal is
// turned directly into a deferred FnPtr without running its body; a
// non-deferred FnPtr produced by evaluation is invoked immediately and
// replaced by its return value, matching ordinary call semantics.
func (ip *Interp) evalArg(ctx *pipectx.Context, e ast.Expr) (*value.Value, error) {
	if fc, ok := e.(ast.FnClosureExpr); ok {
		return value.NewImmutable(value.Fn(&value.FnPtr{Name: fc.Def.Name, Def: fc.Def, Deferred: true})), nil
	}
	v, err := ip.Eval(ctx, e)
	if err != nil {
		return nil, err
	}
	d := v.AsDynamic()
	if d.Kind == value.KindFnPtr && d.FnPtr != nil && !d.FnPtr.Deferred {
		return ip.Invoke(ctx, d.FnPtr, nil)
	}
	return v, nil
}

func (ip *Interp) evalCall(ctx *pipectx.Context, call *ast.FnCallExpr) (*value.Value, error) {
	if call.Name == "" {
		return value.NewImmutable(value.Unit()), nil
	}
	argVals := make([]*value.Value, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := ip.evalArg(ctx, a)
		if err != nil {
			return nil, err
		}
		argVals = append(argVals, v)
	}
	return ip.dispatch(ctx, call.Name, argVals, call.Pos)
}

// dispatch implements the three-stage function lookup: Module::name
// qualified call, then method dispatch on the first argument's runtime
// class, then a bare lookup in the main module.
func (ip *Interp) dispatch(ctx *pipectx.Context, name string, args []*value.Value, pos token.Position) (*value.Value, error) {
	if idx := strings.Index(name, "::"); idx >= 0 {
		modName, fnName := name[:idx], name[idx+2:]
		mod, ok := ip.Registry.Modules[modName]
		if !ok {
			return nil, langerr.Resolve(pos, "unknown module %q", modName)
		}
		fn, ok := mod.Lookup(fnName)
		if !ok {
			return nil, langerr.Resolve(pos, "function %q undefined in module %q", fnName, modName)
		}
		return ip.invokeFunction(ctx, fn, args, nil)
	}

	if len(args) > 0 {
		d := args[0].AsDynamic()
		if d.Kind == value.KindStruct {
			if fn, ok := ip.Registry.Main.LookupMethod(d.Struct.ClassName, name); ok {
				return ip.invokeFunction(ctx, fn, args[1:], args[0])
			}
		}
	}

	fn, ok := ip.Registry.Main.Lookup(name)
	if !ok {
		return nil, langerr.Resolve(pos, "function %q is undefined", name)
	}
	return ip.invokeFunction(ctx, fn, args, nil)
}

func (ip *Interp) invokeFunction(ctx *pipectx.Context, fn module.Function, args []*value.Value, this *value.Value) (*value.Value, error) {
	if fn.IsNative() {
		dynArgs := make([]value.Dynamic, len(args))
		for i, a := range args {
			dynArgs[i] = a.AsDynamic()
		}
		d, err := fn.Native(ctx, dynArgs)
		if err != nil {
			return nil, err
		}
		return value.NewImmutable(d), nil
	}
	return ip.callScript(ctx, fn.Script, args, this)
}

// callScript pushes a fresh Scope whose parent is the current scope at
// the call site, binds the receiver (if any) and parameters by
// position, then runs the body.
func (ip *Interp) callScript(ctx *pipectx.Context, def *ast.FnDef, args []*value.Value, this *value.Value) (*value.Value, error) {
	child := ctx.Scope().Child()
	callCtx := ctx.WithScope(child)
	if this != nil {
		child.Let("this", value.NewMutable(this.AsDynamic()))
	}
	for i, p := range def.Params {
		var d value.Dynamic
		if i < len(args) {
			d = args[i].AsDynamic()
		}
		child.Let(p.Name, value.NewMutable(d))
	}
	sig, v, err := ip.execBlock(callCtx, def.Body)
	if err != nil {
		return nil, err
	}
	if sig == SigReturn {
		return v, nil
	}
	return value.NewImmutable(value.Unit()), nil
}

// Invoke is the pipectx.InvokeFunc hook wired into the root Context:
// it lets lang/sched's pipeline/step/parallel and the std `call`
// builtin run a deferred FnPtr without importing lang/interp's
// concrete type.
func (ip *Interp) Invoke(ctx *pipectx.Context, fn *value.FnPtr, args []*value.Value) (*value.Value, error) {
	if def, ok := fn.Def.(*ast.FnDef); ok && def != nil {
		return ip.callScript(ctx, def, args, nil)
	}
	return ip.dispatch(ctx, fn.Name, args, token.Position{})
}

func opSymbol(op ast.Op) string {
	switch op {
	case ast.OpPlus:
		return "+"
	case ast.OpMinus:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpMod:
		return "%"
	case ast.OpGreater:
		return ">"
	case ast.OpLess:
		return "<"
	case ast.OpEqual:
		return "=="
	case ast.OpNotEqual:
		return "!="
	}
	return "?"
}

func (ip *Interp) evalBinary(ctx *pipectx.Context, e ast.BinaryExpr) (*value.Value, error) {
	lv, err := ip.Eval(ctx, e.LHS)
	if err != nil {
		return nil, err
	}
	rv, err := ip.Eval(ctx, e.RHS)
	if err != nil {
		return nil, err
	}
	l, r := lv.AsDynamic(), rv.AsDynamic()
	switch e.Op {
	case ast.OpPlus, ast.OpMinus, ast.OpMul, ast.OpDiv, ast.OpMod:
		d, err := value.Arith(opSymbol(e.Op), l, r)
		if err != nil {
			return nil, langerr.Type(e.Pos, "%v", err)
		}
		return value.NewImmutable(d), nil
	default:
		b, err := value.Compare(opSymbol(e.Op), l, r)
		if err != nil {
			return nil, langerr.Type(e.Pos, "%v", err)
		}
		return value.NewImmutable(value.Boolean(b)), nil
	}
}

// evalElement evaluates an array/map/struct literal element. An
// element read out of existing storage (a variable, field or index)
// becomes a Refer so the literal aliases that storage without
// extending its lifetime: the binding that owns it stays the single
// owner. A fresh sub-expression result has no other owner, so the
// container keeps (or becomes) its strong Mutable handle; a fresh
// Immutable is promoted to its own Mutable slot so the element
// supports in-place assignment, mirroring how Let always binds into a
// fresh Mutable.
func (ip *Interp) evalElement(ctx *pipectx.Context, e ast.Expr) (*value.Value, error) {
	v, err := ip.Eval(ctx, e)
	if err != nil {
		return nil, err
	}
	switch e.(type) {
	case ast.Variable, ast.MemberAccess, ast.Index:
		if v.Form() == value.FormMutable {
			return v.Refer(), nil
		}
	}
	switch v.Form() {
	case value.FormMutable, value.FormRefer:
		return v, nil
	default:
		return value.NewMutable(v.AsDynamic()), nil
	}
}

func (ip *Interp) evalArray(ctx *pipectx.Context, e ast.Array) (*value.Value, error) {
	elems := make([]*value.Value, 0, len(e.Elements))
	for _, el := range e.Elements {
		v, err := ip.evalElement(ctx, el)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return value.NewMutable(value.NewArray(elems)), nil
}

func (ip *Interp) evalMap(ctx *pipectx.Context, e ast.Map) (*value.Value, error) {
	m := value.NewOrderedMap()
	for _, entry := range e.Entries {
		var key value.Dynamic
		if bare, ok := entry.Key.(ast.Variable); ok {
			// bare identifier key: `(name: "a")` uses the literal word
			// "name" as a string key, not a scope lookup.
			key = value.String(bare.Name)
		} else {
			kv, err := ip.Eval(ctx, entry.Key)
			if err != nil {
				return nil, err
			}
			key = kv.AsDynamic()
		}
		val, err := ip.evalElement(ctx, entry.Value)
		if err != nil {
			return nil, err
		}
		m.Set(key, val)
	}
	return value.NewMutable(value.NewMap(m)), nil
}

func (ip *Interp) evalIndex(ctx *pipectx.Context, e ast.Index) (*value.Value, error) {
	ov, err := ip.Eval(ctx, e.Obj)
	if err != nil {
		return nil, err
	}
	od := ov.AsDynamic()
	iv, err := ip.Eval(ctx, e.Index_)
	if err != nil {
		return nil, err
	}
	id := iv.AsDynamic()

	switch od.Kind {
	case value.KindArray:
		if id.Kind != value.KindInteger {
			return nil, langerr.Type(e.Pos, "array index must be an integer")
		}
		i := int(id.Int)
		if i < 0 || i >= len(od.Array) {
			return nil, langerr.Type(e.Pos, "array index %d out of bounds (len %d)", i, len(od.Array))
		}
		return od.Array[i], nil
	case value.KindMap:
		v, ok := od.Map.Get(id)
		if !ok {
			return nil, langerr.Resolve(e.Pos, "map has no key %s", id.Display())
		}
		return v, nil
	case value.KindString:
		if id.Kind != value.KindInteger {
			return nil, langerr.Type(e.Pos, "string index must be an integer")
		}
		runes := []rune(od.Str)
		i := int(id.Int)
		if i < 0 || i >= len(runes) {
			return nil, langerr.Type(e.Pos, "string index %d out of bounds (len %d)", i, len(runes))
		}
		return value.NewImmutable(value.String(string(runes[i]))), nil
	default:
		return nil, langerr.Type(e.Pos, "cannot index a %s", od.Kind)
	}
}

func (ip *Interp) evalStruct(ctx *pipectx.Context, e ast.Struct) (*value.Value, error) {
	class, ok := ip.Registry.Main.Classes[e.ClassName]
	if !ok {
		return nil, langerr.Resolve(e.Pos, "class %q is undefined", e.ClassName)
	}
	fields := make(map[string]*value.Value, len(class.Fields))
	for _, f := range class.Fields {
		fields[f.Name] = value.NewMutable(value.Unit())
	}
	for _, sf := range e.Fields {
		v, err := ip.evalElement(ctx, sf.Value)
		if err != nil {
			return nil, err
		}
		fields[sf.Name] = v
	}
	return value.NewMutable(value.NewStruct(&value.Struct{ClassName: e.ClassName, Fields: fields})), nil
}

func (ip *Interp) evalMember(ctx *pipectx.Context, e ast.MemberAccess) (*value.Value, error) {
	ov, err := ip.Eval(ctx, e.Obj)
	if err != nil {
		return nil, err
	}
	od := ov.AsDynamic()
	if od.Kind != value.KindStruct {
		return nil, langerr.Type(e.Pos, "cannot access field %q on a %s", e.Name, od.Kind)
	}
	v, ok := od.Struct.Fields[e.Name]
	if !ok {
		return nil, langerr.Resolve(e.Pos, "%s has no field %q", od.Struct.ClassName, e.Name)
	}
	return v, nil
}

func (ip *Interp) execAssign(ctx *pipectx.Context, s ast.Assign) error {
	v, err := ip.Eval(ctx, s.Value)
	if err != nil {
		return err
	}
	d := v.AsDynamic()
	switch target := s.Target.(type) {
	case ast.Variable:
		if err := ctx.Scope().Assign(target.Name, d); err != nil {
			return langerr.Resolve(target.Pos, "%v", err)
		}
		return nil
	case ast.MemberAccess:
		ov, err := ip.Eval(ctx, target.Obj)
		if err != nil {
			return err
		}
		od := ov.AsDynamic()
		if od.Kind != value.KindStruct {
			return langerr.Type(target.Pos, "cannot assign field %q on a %s", target.Name, od.Kind)
		}
		field, ok := od.Struct.Fields[target.Name]
		if !ok {
			field = value.NewMutable(value.Unit())
			od.Struct.Fields[target.Name] = field
		}
		return field.Set(d)
	default:
		return langerr.Parse(s.Pos, "invalid assignment target")
	}
}

func (ip *Interp) execIndexAssign(ctx *pipectx.Context, s ast.IndexAssign) error {
	ov, err := ip.Eval(ctx, s.Obj)
	if err != nil {
		return err
	}
	od := ov.AsDynamic()
	iv, err := ip.Eval(ctx, s.Index)
	if err != nil {
		return err
	}
	id := iv.AsDynamic()
	vv, err := ip.Eval(ctx, s.Value)
	if err != nil {
		return err
	}
	vd := vv.AsDynamic()

	switch od.Kind {
	case value.KindArray:
		if id.Kind != value.KindInteger {
			return langerr.Type(s.Pos, "array index must be an integer")
		}
		i := int(id.Int)
		if i < 0 || i >= len(od.Array) {
			return langerr.Type(s.Pos, "array index %d out of bounds (len %d)", i, len(od.Array))
		}
		return od.Array[i].Set(vd)
	case value.KindMap:
		if existing, ok := od.Map.Get(id); ok {
			return existing.Set(vd)
		}
		od.Map.Set(id, value.NewMutable(vd))
		return nil
	default:
		return langerr.Type(s.Pos, "cannot index-assign on a %s", od.Kind)
	}
}

func (ip *Interp) execIf(ctx *pipectx.Context, s ast.If) (Signal, *value.Value, error) {
	for _, b := range s.Branches {
		cv, err := ip.Eval(ctx, b.Condition)
		if err != nil {
			return SigNone, nil, err
		}
		cond, err := cv.AsDynamic().IsTruthy()
		if err != nil {
			return SigNone, nil, langerr.Type(b.Condition.Position(), "%v", err)
		}
		if cond {
			return ip.execBlock(ctx, b.Body)
		}
	}
	if s.Else != nil {
		return ip.execBlock(ctx, s.Else)
	}
	return SigNone, value.NewImmutable(value.Unit()), nil
}

func (ip *Interp) execWhile(ctx *pipectx.Context, s ast.While) (Signal, *value.Value, error) {
	for {
		cv, err := ip.Eval(ctx, s.Cond)
		if err != nil {
			return SigNone, nil, err
		}
		cond, err := cv.AsDynamic().IsTruthy()
		if err != nil {
			return SigNone, nil, langerr.Type(s.Cond.Position(), "%v", err)
		}
		if !cond {
			break
		}
		sig, v, err := ip.execBlock(ctx, s.Body)
		if err != nil {
			return SigNone, nil, err
		}
		switch sig {
		case SigBreak:
			return SigNone, value.NewImmutable(value.Unit()), nil
		case SigReturn:
			return SigReturn, v, nil
		}
	}
	return SigNone, value.NewImmutable(value.Unit()), nil
}

func (ip *Interp) execForIn(ctx *pipectx.Context, s ast.ForIn) (Signal, *value.Value, error) {
	iv, err := ip.Eval(ctx, s.Iter)
	if err != nil {
		return SigNone, nil, err
	}
	d := iv.AsDynamic()
	if d.Kind != value.KindArray {
		return SigNone, nil, langerr.Type(s.Pos, "for-in iterator must be an array")
	}
	scope := ctx.Scope()
	for i, elem := range d.Array {
		if s.HasValue {
			scope.Let(s.Key, value.NewMutable(value.Integer(int64(i))))
			scope.Let(s.Value, value.NewMutable(elem.AsDynamic()))
		} else {
			scope.Let(s.Key, value.NewMutable(elem.AsDynamic()))
		}
		sig, v, err := ip.execBlock(ctx, s.Body)
		if err != nil {
			return SigNone, nil, err
		}
		switch sig {
		case SigBreak:
			return SigNone, value.NewImmutable(value.Unit()), nil
		case SigContinue:
			continue
		case SigReturn:
			return SigReturn, v, nil
		}
	}
	return SigNone, value.NewImmutable(value.Unit()), nil
}

// execImport loads ModuleName, preferring an already-registered
// built-in/host module (std/math/pipe/layout, or one imported earlier
// in this run) before falling back to the Resolver for a `.kts` file.
// Module.Merge never overwrites, so importing the same name twice is
// idempotent.
func (ip *Interp) execImport(ctx *pipectx.Context, s ast.Import) error {
	if mod, ok := ip.Registry.Modules[s.ModuleName]; ok {
		ip.Registry.Main.Merge(mod)
		return nil
	}
	if ip.Resolver == nil {
		return langerr.Resolve(s.Pos, "unknown module %q", s.ModuleName)
	}
	src, err := ip.Resolver(s.ModuleName)
	if err != nil {
		return langerr.Resolve(s.Pos, "unknown module %q: %v", s.ModuleName, err)
	}
	prog, err := parser.New(src).Parse()
	if err != nil {
		return langerr.Wrap(langerr.KindParse, err, "failed to parse module %q", s.ModuleName)
	}
	mod := module.New(s.ModuleName)
	for _, fn := range prog.Fns {
		mod.RegisterScript(fn)
	}
	for _, c := range prog.Classes {
		methods := map[string]module.Function{}
		for n, m := range c.Methods {
			methods[n] = module.Function{Script: m}
		}
		mod.RegisterClass(&module.Class{Name: c.Name, Fields: c.Fields, Methods: methods})
	}
	ip.Registry.Modules[s.ModuleName] = mod
	ip.Registry.Main.Merge(mod)
	return nil
}
