package engine

import "github.com/titpetric/kts/lang/ast"

// ListPipelines returns the names of every top-level `pipeline(name) {
// ... }` call in prog's statement list, in source order, without
// evaluating the script. Used by the CLI's `list` subcommand and by
// fuzzy-matching a user-typed pipeline name against what's available.
func ListPipelines(prog *ast.Program) []string {
	var names []string
	for _, stmt := range prog.Stmts {
		call, ok := stmt.(ast.FnCallStmt)
		if !ok || call.Call == nil {
			continue
		}
		if !isPipelineCall(call.Call.Name) {
			continue
		}
		if len(call.Call.Args) == 0 {
			continue
		}
		if s, ok := call.Call.Args[0].(ast.StringConstant); ok {
			names = append(names, s.Value)
		}
	}
	return names
}

func isPipelineCall(name string) bool {
	return name == "pipeline" || name == "pipe::pipeline"
}
