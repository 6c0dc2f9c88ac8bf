package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titpetric/kts/lang/host"
)

func newTestEngine(t *testing.T, out *bytes.Buffer) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := New(Options{
		Out:         out,
		PipelineDir: dir,
		Host:        host.NewDefaultHost(nil),
	})
	require.NoError(t, err)
	return e
}

func TestHelloPrintsLine(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`println("hi")`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "hi")
}

func TestArithmetic(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`let a = 3; let b = 2; println(a*b+1)`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "7")
}

func TestIfElse(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`let x = 5; if x > 3 { println("big") } else { println("small") }`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "big")
}

func TestWhileBreak(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`let i = 0; while i < 10 { if i == 3 { break } ; i = i+1 }; println(i)`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "3")
}

func TestBooleanLiteralCondition(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`if true { println("yes") } else { println("no") }`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "yes")
	assert.NotContains(t, out.String(), "no")
}

func TestMapLiteralAccess(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`let m = (name: "a", v: 42); println(m["v"])`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "42")
}

func TestStructMethod(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`class P(n: String); fun P.hello(): Unit { println(this.n) }; let p = P(n: "kai"); p.hello()`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "kai")
}

func TestPipelineOrdering(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`import pipe; pipeline("x") { step("a") { println("A") } ; step("b") { println("B") } }`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	text := out.String()
	ai := bytes.Index([]byte(text), []byte("A"))
	bi := bytes.Index([]byte(text), []byte("B"))
	assert.True(t, ai >= 0 && bi >= 0 && ai < bi)
}

func TestParallelJoin(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`import pipe; pipeline("x") { parallel("a") { println("A") } ; parallel("b") { println("B") } }`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "A")
	assert.Contains(t, out.String(), "B")
}

func TestListPipelines(t *testing.T) {
	prog, err := LoadString(`import pipe; pipeline("build") { step("a") {} } pipeline("deploy") { step("b") {} }`)
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "deploy"}, ListPipelines(prog))
}

func TestRunFilteredSkipsNonMatchingPipeline(t *testing.T) {
	var out bytes.Buffer
	e := newTestEngine(t, &out)
	prog, err := LoadString(`import pipe; pipeline("build") { step("a") { println("built") } } pipeline("deploy") { step("b") { println("deployed") } }`)
	require.NoError(t, err)
	require.NoError(t, e.RunFiltered(prog, "deploy", ""))
	assert.NotContains(t, out.String(), "built")
	assert.Contains(t, out.String(), "deployed")
}

func TestResolveImportPrefersProjectDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(wd) }()

	proj := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(proj, "helper.kts"), []byte(`fn helper() { println("from project") }`), 0o644))
	require.NoError(t, os.Chdir(proj))

	var out bytes.Buffer
	e := newTestEngine(t, &out)
	pkgDir := filepath.Join(e.Options.PipelineDir, "package")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "helper.kts"), []byte(`fn helper() { println("from package") }`), 0o644))
	prog, err := LoadString(`import helper; helper()`)
	require.NoError(t, err)
	require.NoError(t, e.Run(prog))
	assert.Contains(t, out.String(), "from project")
	assert.NotContains(t, out.String(), "from package")
}
