// Package planner computes the actions eligible to run next by backward chaining
// over the action/context dependency graph of a tick story.
package planner

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/aretw0/tickstory/pkg/domain"
)

// Problem is the input of a planning round.
type Problem struct {
	// Actions is the full action set of the story, in declaration order.
	Actions []domain.Action
	// Contexts holds the known contexts. A key that is present satisfies a
	// precondition even if its value is nil.
	Contexts map[string]any
	// Target is the primary objective the plan must lead to.
	Target domain.Action
	// RanHandlers are the actions already executed in the current plan. They are
	// never selected again as producers.
	RanHandlers []string
	// Current is the action that just ran, if any. It is treated like a ran action.
	Current string
}

// Solve returns the actions that are directly eligible and lead to the target,
// in declaration order. It fails with domain.ErrNoSolution when none exists.
func Solve(p Problem) ([]string, error) {
	s := &solver{
		problem: p,
		path:    make(map[string]bool),
		leaves:  make(map[string]bool),
	}

	if !s.search(p.Target) {
		return nil, fmt.Errorf("%w: target %q unreachable with contexts %v", domain.ErrNoSolution, p.Target.Name, keys(p.Contexts))
	}

	var out []string
	for _, a := range p.Actions {
		if s.leaves[a.Name] {
			out = append(out, a.Name)
		}
	}
	// The target may be missing from the declared actions in ad-hoc problems.
	if s.leaves[p.Target.Name] && !slices.Contains(out, p.Target.Name) {
		out = append(out, p.Target.Name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: target %q", domain.ErrNoSolution, p.Target.Name)
	}
	return out, nil
}

// Eligible reports whether every input context of a is known.
func Eligible(a domain.Action, contexts map[string]any) bool {
	for _, name := range a.InputContextNames {
		if _, ok := contexts[name]; !ok {
			return false
		}
	}
	return true
}

type solver struct {
	problem Problem
	path    map[string]bool
	leaves  map[string]bool
}

// search reports whether a can be reached, recording the eligible leaves found.
// Every unmet input must have at least one productive producer.
func (s *solver) search(a domain.Action) bool {
	if Eligible(a, s.problem.Contexts) {
		s.leaves[a.Name] = true
		return true
	}
	if s.path[a.Name] {
		return false
	}
	s.path[a.Name] = true
	defer delete(s.path, a.Name)

	found := make(map[string]bool)
	for _, missing := range s.unmet(a) {
		productive := false
		for _, producer := range s.producers(missing, a.Name) {
			// Leaves collected by a failed branch are discarded below.
			if s.trial(producer, found) {
				productive = true
			}
		}
		if !productive {
			return false
		}
	}
	for name := range found {
		s.leaves[name] = true
	}
	return true
}

// trial searches producer in isolation and merges its leaves into found on success.
func (s *solver) trial(producer domain.Action, found map[string]bool) bool {
	saved := s.leaves
	s.leaves = make(map[string]bool)
	ok := s.search(producer)
	branch := s.leaves
	s.leaves = saved
	if ok {
		for name := range branch {
			found[name] = true
		}
	}
	return ok
}

func (s *solver) unmet(a domain.Action) []string {
	var out []string
	for _, name := range a.InputContextNames {
		if _, ok := s.problem.Contexts[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *solver) producers(context, consumer string) []domain.Action {
	var out []domain.Action
	for _, a := range s.problem.Actions {
		if a.Name == consumer || !a.Produces(context) || s.ran(a.Name) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *solver) ran(name string) bool {
	return name == s.problem.Current || slices.Contains(s.problem.RanHandlers, name)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Chooser picks one action among the eligible candidates. Candidates are never empty.
type Chooser func(candidates []string) string

// FirstChooser always picks the first candidate in declaration order.
func FirstChooser(candidates []string) string {
	return candidates[0]
}

// RandomChooser picks uniformly at random. A nil source uses the global generator.
func RandomChooser(r *rand.Rand) Chooser {
	return func(candidates []string) string {
		if len(candidates) == 1 {
			return candidates[0]
		}
		if r == nil {
			return candidates[rand.IntN(len(candidates))]
		}
		return candidates[r.IntN(len(candidates))]
	}
}
