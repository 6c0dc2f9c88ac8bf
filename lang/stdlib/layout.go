package stdlib

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/titpetric/kts/eventlog"
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/sched"
	"github.com/titpetric/kts/lang/value"
)

// templateCtxKey is the Context frame a `template` block pushes its
// interpolation map under, so a nested `set(key, value)` call can find
// it without being passed an explicit handle (see DESIGN.md's
// resolution of spec.md §6's three-argument `set(ctx, key, value)`
// form).
const templateCtxKey = "$layout_template_ctx"

// templateVars is the interpolation map `set` populates and `template`
// renders `${identifier}` patterns against.
type templateVars struct {
	mu   sync.Mutex
	vars map[string]string
}

func newTemplateVars() *templateVars { return &templateVars{vars: map[string]string{}} }

func (t *templateVars) set(key, value string) {
	t.mu.Lock()
	t.vars[key] = value
	t.mu.Unlock()
}

func (t *templateVars) get(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vars[key]
	return v, ok
}

func templateVarsFrom(ctx *pipectx.Context) *templateVars {
	v, ok := ctx.Value(templateCtxKey)
	if !ok {
		return nil
	}
	return v.(*templateVars)
}

// registerLayout installs the layout module's four natives: layout,
// folder, template, set (spec.md §6). sc's eventlog records each
// template render as an EventTypeInterpolation entry.
func registerLayout(mod *module.Module, sc *sched.Scheduler) {
	mod.RegisterNative("layout", layoutNative)
	mod.RegisterNative("folder", folderNative)
	mod.RegisterNative("template", templateNative(sc))
	mod.RegisterNative("set", setNative)
}

func extractLayoutArgs(args []value.Dynamic) (string, *value.FnPtr, error) {
	if len(args) < 2 || args[0].Kind != value.KindString {
		return "", nil, langerr.Type(langerr.NoPos(), "expected (name, body) arguments")
	}
	if args[1].Kind != value.KindFnPtr || args[1].FnPtr == nil {
		return "", nil, langerr.Type(langerr.NoPos(), "second argument must be a trailing closure body")
	}
	return args[0].Str, args[1].FnPtr, nil
}

// layoutNative implements `layout(name, body)`: creates the project
// root directory named name under the current workspace, makes it the
// active workspace for the duration of body, then runs body.
func layoutNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	name, fn, err := extractLayoutArgs(args)
	if err != nil {
		return value.Unit(), err
	}
	h := hostFrom(ctx)
	if h == nil {
		return value.Unit(), langerr.Host("no host is registered in this context")
	}
	root := resolvePath(ctx, name)
	if err := h.FSMkdirAll(root); err != nil {
		return value.Unit(), langerr.Host("layout %q: %v", name, err)
	}

	gs := ctx.GlobalState()
	if gs != nil {
		prev := gs.GetOr("workspace", ".")
		gs.Set("workspace", root)
		defer gs.Set("workspace", prev)
	}

	if _, err := ctx.Invoke(fn, nil); err != nil {
		return value.Unit(), err
	}
	return value.Unit(), nil
}

// folderNative implements `folder(name)`: creates a subdirectory under
// the current workspace.
func folderNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	names, err := stringArgs(args, 1, "folder")
	if err != nil {
		return value.Unit(), err
	}
	h := hostFrom(ctx)
	if h == nil {
		return value.Unit(), langerr.Host("no host is registered in this context")
	}
	if err := h.FSMkdirAll(resolvePath(ctx, names[0])); err != nil {
		return value.Unit(), langerr.Host("folder %q: %v", names[0], err)
	}
	return value.Unit(), nil
}

// interpolate replaces every `${identifier}` in src with its bound
// value in vars, failing on an unknown key (spec.md §6).
func interpolate(src string, vars *templateVars) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(src) {
		start := strings.Index(src[i:], "${")
		if start < 0 {
			b.WriteString(src[i:])
			break
		}
		start += i
		b.WriteString(src[i:start])
		end := strings.IndexByte(src[start+2:], '}')
		if end < 0 {
			b.WriteString(src[start:])
			break
		}
		end += start + 2
		key := src[start+2 : end]
		val, ok := vars.get(key)
		if !ok {
			return "", langerr.Resolve(langerr.NoPos(), "template: unknown identifier %q", key)
		}
		b.WriteString(val)
		i = end + 1
	}
	return b.String(), nil
}

// templateNative implements `template(path, body)`: runs body with a
// fresh interpolation context that `set` populates, then renders
// `${identifier}` patterns in the file at path against it, in place.
func templateNative(sc *sched.Scheduler) module.NativeFunc {
	return func(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
		path, fn, err := extractLayoutArgs(args)
		if err != nil {
			return value.Unit(), err
		}
		h := hostFrom(ctx)
		if h == nil {
			return value.Unit(), langerr.Host("no host is registered in this context")
		}

		vars := newTemplateVars()
		tctx := ctx.Push(templateCtxKey, vars)
		if _, err := tctx.Invoke(fn, nil); err != nil {
			return value.Unit(), err
		}

		full := resolvePath(ctx, path)
		raw, err := h.FSRead(full)
		if err != nil {
			return value.Unit(), langerr.Host("template %q: %v", path, err)
		}

		start := time.Now()
		rendered, err := interpolate(string(raw), vars)
		if err != nil {
			return value.Unit(), err
		}
		if err := h.FSWrite(full, []byte(rendered)); err != nil {
			return value.Unit(), langerr.Host("template %q: %v", path, err)
		}

		if sc != nil && sc.EventLog != nil {
			sc.EventLog.LogCommand(eventlog.LogEntry{
				Type:       eventlog.EventTypeInterpolation,
				ID:         ulid.Make().String(),
				Command:    path,
				DurationMs: time.Since(start).Milliseconds(),
			})
		}
		return value.Unit(), nil
	}
}

// setNative implements `set(key, value)` or the spec's three-argument
// `set(ctx, key, value)` form (the leading ctx argument is accepted and
// ignored — see DESIGN.md — since the active template's interpolation
// map is already tracked ambiently).
func setNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	var key, val value.Dynamic
	switch len(args) {
	case 2:
		key, val = args[0], args[1]
	case 3:
		key, val = args[1], args[2]
	default:
		return value.Unit(), langerr.Type(langerr.NoPos(), "set expects (key, value) or (ctx, key, value)")
	}
	if key.Kind != value.KindString {
		return value.Unit(), langerr.Type(langerr.NoPos(), "set: key must be a string")
	}
	vars := templateVarsFrom(ctx)
	if vars == nil {
		return value.Unit(), langerr.Host("set: called outside an active template block")
	}
	vars.set(key.Str, val.Display())
	return value.Unit(), nil
}
