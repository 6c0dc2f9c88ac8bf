package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// resolveImport implements the two-stage lookup spec.md §1 describes
// for a non-built-in `import name`: first the project directory
// (name.kts in the current working directory), then the shared package
// directory under PipelineDir (~/.pipeline/package/name.kts).
func (e *Engine) resolveImport(name string) (string, error) {
	projectPath := name + ".kts"
	if data, err := os.ReadFile(projectPath); err == nil {
		return string(data), nil
	}

	pkgPath := filepath.Join(e.Options.PipelineDir, "package", name+".kts")
	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return "", fmt.Errorf("module %q not found in project dir or %s", name, pkgPath)
	}
	return string(data), nil
}
