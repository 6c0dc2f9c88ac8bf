package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titpetric/kts/lang/ast"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := New(src).Parse()
	require.NoError(t, err)
	return prog
}

func TestParse_LetBindsExpression(t *testing.T) {
	prog := parse(t, `let x = 1 + 2 * 3`)
	require.Len(t, prog.Stmts, 1)

	let, ok := prog.Stmts[0].(ast.Let)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)

	// precedence: 1 + (2 * 3)
	bin, ok := let.Expr.(ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpPlus, bin.Op)
	rhs, ok := bin.RHS.(ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, rhs.Op)
}

func TestParse_ComparisonIsLowestPrecedence(t *testing.T) {
	prog := parse(t, `let b = 1 + 2 > 2`)
	let := prog.Stmts[0].(ast.Let)
	bin, ok := let.Expr.(ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpGreater, bin.Op)
}

func TestParse_AssignVsIndexAssign(t *testing.T) {
	prog := parse(t, `
		x = 1
		xs[0] = 2
	`)
	require.Len(t, prog.Stmts, 2)
	_, ok := prog.Stmts[0].(ast.Assign)
	assert.True(t, ok)
	_, ok = prog.Stmts[1].(ast.IndexAssign)
	assert.True(t, ok)
}

func TestParse_TrailingClosureBecomesDeferredArg(t *testing.T) {
	prog := parse(t, `pipeline("x") { step("a") { } }`)
	require.Len(t, prog.Stmts, 1)

	call := prog.Stmts[0].(ast.FnCallStmt).Call
	assert.Equal(t, "pipeline", call.Name)
	require.Len(t, call.Args, 2)
	_, ok := call.Args[0].(ast.StringConstant)
	assert.True(t, ok)
	closure, ok := call.Args[1].(ast.FnClosureExpr)
	require.True(t, ok)
	require.Len(t, closure.Def.Body, 1)

	inner := closure.Def.Body[0].(ast.FnCallStmt).Call
	assert.Equal(t, "step", inner.Name)
}

func TestParse_IfConditionCallKeepsBlockAsBody(t *testing.T) {
	prog := parse(t, `
		if ready() {
			go()
		}
	`)
	require.Len(t, prog.Stmts, 1)

	stmt, ok := prog.Stmts[0].(ast.If)
	require.True(t, ok)
	require.Len(t, stmt.Branches, 1)

	cond, ok := stmt.Branches[0].Condition.(ast.FnCallExpr)
	require.True(t, ok)
	assert.Equal(t, "ready", cond.Name)
	assert.Empty(t, cond.Args, "condition call must not swallow the if body as a trailing closure")
	require.Len(t, stmt.Branches[0].Body, 1)
}

func TestParse_WhileConditionCallKeepsBlockAsBody(t *testing.T) {
	prog := parse(t, `while hasNext() { next() }`)
	stmt, ok := prog.Stmts[0].(ast.While)
	require.True(t, ok)
	cond := stmt.Cond.(ast.FnCallExpr)
	assert.Empty(t, cond.Args)
	require.Len(t, stmt.Body, 1)
}

func TestParse_StructLiteralVsCall(t *testing.T) {
	prog := parse(t, `
		let p = Point(x: 1, y: 2)
		let q = make(Count)
	`)
	require.Len(t, prog.Stmts, 2)

	st, ok := prog.Stmts[0].(ast.Let).Expr.(ast.Struct)
	require.True(t, ok)
	assert.Equal(t, "Point", st.ClassName)
	require.Len(t, st.Fields, 2)
	assert.Equal(t, "x", st.Fields[0].Name)
	assert.Equal(t, "y", st.Fields[1].Name)

	// a capitalized bare argument must stay an ordinary call argument
	call, ok := prog.Stmts[1].(ast.Let).Expr.(ast.FnCallExpr)
	require.True(t, ok)
	assert.Equal(t, "make", call.Name)
	require.Len(t, call.Args, 1)
	v, ok := call.Args[0].(ast.Variable)
	require.True(t, ok)
	assert.Equal(t, "Count", v.Name)
}

func TestParse_MapLiteral(t *testing.T) {
	prog := parse(t, `let m = (name: "a", v: 42)`)
	m, ok := prog.Stmts[0].(ast.Let).Expr.(ast.Map)
	require.True(t, ok)
	require.Len(t, m.Entries, 2)
}

func TestParse_ParenthesizedGrouping(t *testing.T) {
	prog := parse(t, `let n = (1 + 2) * 3`)
	bin, ok := prog.Stmts[0].(ast.Let).Expr.(ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, bin.Op)
}

func TestParse_QualifiedCall(t *testing.T) {
	prog := parse(t, `math::max(1, 2)`)
	call := prog.Stmts[0].(ast.FnCallStmt).Call
	assert.Equal(t, "math::max", call.Name)
	assert.Len(t, call.Args, 2)
}

func TestParse_ForInWithIndexBinding(t *testing.T) {
	prog := parse(t, `for i, v in xs { use(i, v) }`)
	stmt, ok := prog.Stmts[0].(ast.ForIn)
	require.True(t, ok)
	assert.Equal(t, "i", stmt.Key)
	assert.Equal(t, "v", stmt.Value)
	assert.True(t, stmt.HasValue)
}

func TestParse_FnAndFunCollected(t *testing.T) {
	prog := parse(t, `
		fn legacy(a: Int) { return a }
		fun typed(b: Int): Int { return b }
	`)
	assert.Empty(t, prog.Stmts)
	require.Contains(t, prog.Fns, "legacy")
	require.Contains(t, prog.Fns, "typed")
	assert.Equal(t, "Int", prog.Fns["typed"].ReturnType)
}

func TestParse_ClassThenMethod(t *testing.T) {
	prog := parse(t, `
		class P(n: String)
		fun P.hello(): Unit { println(this.n) }
	`)
	require.Contains(t, prog.Classes, "P")
	cls := prog.Classes["P"]
	require.Len(t, cls.Fields, 1)
	assert.Equal(t, "n", cls.Fields[0].Name)
	assert.Contains(t, cls.Methods, "hello")
}

func TestParse_MethodBeforeClassFails(t *testing.T) {
	_, err := New(`fun P.hello() { }`).Parse()
	assert.Error(t, err)
}

func TestParse_MemberChainWithIndex(t *testing.T) {
	prog := parse(t, `let v = s.x[0]`)
	idx, ok := prog.Stmts[0].(ast.Let).Expr.(ast.Index)
	require.True(t, ok)
	member, ok := idx.Obj.(ast.MemberAccess)
	require.True(t, ok)
	assert.Equal(t, "x", member.Name)
}

func TestParse_DotCallDesugarsToMethodDispatch(t *testing.T) {
	prog := parse(t, `p.hello(1)`)
	call := prog.Stmts[0].(ast.FnCallStmt).Call
	assert.Equal(t, "hello", call.Name)
	require.Len(t, call.Args, 2)
	recv, ok := call.Args[0].(ast.Variable)
	require.True(t, ok)
	assert.Equal(t, "p", recv.Name)
}

func TestParse_UnusedKeywordInExprPosition(t *testing.T) {
	_, err := New(`let x = while`).Parse()
	assert.Error(t, err)
}

func TestParse_UnexpectedCharSurfacesLexerError(t *testing.T) {
	_, err := New(`let x = 1 ? 2`).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected character")
}

func TestParse_BooleanLiteralsDesugarToConstantCalls(t *testing.T) {
	prog := parse(t, `let t = true`)
	call, ok := prog.Stmts[0].(ast.Let).Expr.(ast.FnCallExpr)
	require.True(t, ok)
	assert.Equal(t, "true", call.Name)
	assert.Empty(t, call.Args)
}

func TestParse_ImportStatement(t *testing.T) {
	prog := parse(t, `import pipe`)
	imp, ok := prog.Stmts[0].(ast.Import)
	require.True(t, ok)
	assert.Equal(t, "pipe", imp.ModuleName)
}
