// Package sched implements spec.md §4.G, the `pipe` module's three
// native functions: pipeline, parallel and step. Join-sets are
// golang.org/x/sync/errgroup.Group instances, the Go-idiomatic
// replacement for the Rust source's tokio::JoinSet, grounded on
// runner/executor.go's `eg := new(errgroup.Group); eg.Go(...); eg.Wait()`
// pattern in executeSteps.
package sched

import (
	"golang.org/x/sync/errgroup"

	"github.com/titpetric/kts/lang/pipectx"
)

// JoinSet wraps an errgroup.Group, the collection of worker handles
// that must all complete before the enclosing pipeline/step/parallel
// returns (spec.md's Glossary: "Join-set").
type JoinSet struct {
	eg *errgroup.Group
}

// NewJoinSet creates an empty JoinSet.
func NewJoinSet() *JoinSet { return &JoinSet{eg: new(errgroup.Group)} }

// Go submits fn to run on the join-set. errgroup stops accepting new
// submissions from the caller's perspective only in the sense that the
// first error is latched and returned by Wait; outstanding workers
// already submitted are still drained, matching spec.md §9.
func (j *JoinSet) Go(fn func() error) { j.eg.Go(fn) }

// Wait blocks until every submitted worker has completed, returning
// the first error encountered, if any.
func (j *JoinSet) Wait() error { return j.eg.Wait() }

func joinSet(ctx *pipectx.Context) *JoinSet {
	v, ok := ctx.Value(pipectx.KeyJoinSet)
	if !ok {
		return nil
	}
	return v.(*JoinSet)
}

func opJoinSet(ctx *pipectx.Context) *JoinSet {
	v, ok := ctx.Value(pipectx.KeyOpJoinSet)
	if !ok {
		return nil
	}
	return v.(*JoinSet)
}

// pathMatches implements spec.md §4.G/§8's path filter: a pipeline or
// task runs when the corresponding $global_state key is "all"/unset
// or equals name exactly.
func pathMatches(ctx *pipectx.Context, key, name string) bool {
	gs := ctx.GlobalState()
	selected := "all"
	if gs != nil {
		selected = gs.GetOr(key, "all")
	}
	return selected == "all" || selected == name
}
