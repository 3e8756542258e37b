package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/yourbasic/graph"
)

// ErrCycle is returned when step dependencies form a cycle
var ErrCycle = errors.New("pipeline steps contain a dependency cycle")

// Step is one command of a pipeline
type Step struct {
	Name        string
	Description string
	Command     string
	// Required steps abort the pipeline on failure
	Required  bool
	DependsOn []string
	// Condition, when set, must hold for the step to run
	Condition func() bool
	// SkipMessage is printed when Condition does not hold
	SkipMessage string
	// FailMessage is recorded as an error (required) or warning (advisory) on failure
	FailMessage string
}

// Argv splits the step command the way a POSIX shell would, without running a shell
func (s Step) Argv() ([]string, error) {
	argv, err := shlex.Split(s.Command)
	if err != nil {
		return nil, fmt.Errorf("parse command of step %s: %w", s.Name, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("step %s has an empty command", s.Name)
	}
	return argv, nil
}

func buildGraph(steps []Step) (*graph.Mutable, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate step name %q", s.Name)
		}
		index[s.Name] = i
	}

	g := graph.New(len(steps))
	for i, s := range steps {
		for _, dep := range s.DependsOn {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("step %s depends on unknown step %q", s.Name, dep)
			}
			g.Add(j, i)
		}
	}
	if !graph.Acyclic(g) {
		return nil, ErrCycle
	}
	return g, nil
}

// Plan orders steps so every step follows its dependencies. Steps are
// emitted stage by stage, in declaration order within a stage.
func Plan(steps []Step) ([]Step, error) {
	levels, err := Levels(steps)
	if err != nil {
		return nil, err
	}
	ordered := make([]Step, 0, len(steps))
	for _, level := range levels {
		ordered = append(ordered, level...)
	}
	return ordered, nil
}

// Levels groups steps into stages; every step's dependencies sit in earlier stages
func Levels(steps []Step) ([][]Step, error) {
	g, err := buildGraph(steps)
	if err != nil {
		return nil, err
	}

	indegree := make([]int, len(steps))
	for v := 0; v < g.Order(); v++ {
		g.Visit(v, func(w int, _ int64) bool {
			indegree[w]++
			return false
		})
	}

	var levels [][]Step
	var ready []int
	for v := range steps {
		if indegree[v] == 0 {
			ready = append(ready, v)
		}
	}
	for len(ready) > 0 {
		level := make([]Step, 0, len(ready))
		var next []int
		for _, v := range ready {
			level = append(level, steps[v])
			g.Visit(v, func(w int, _ int64) bool {
				indegree[w]--
				if indegree[w] == 0 {
					next = append(next, w)
				}
				return false
			})
		}
		sort.Ints(next)
		levels = append(levels, level)
		ready = next
	}
	return levels, nil
}

// Describe renders the plan as a chain of stages, e.g. "a >> b >> [c, d]"
func Describe(steps []Step) (string, error) {
	levels, err := Levels(steps)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		names := make([]string, 0, len(level))
		for _, s := range level {
			names = append(names, s.Name)
		}
		if len(names) == 1 {
			parts = append(parts, names[0])
		} else {
			parts = append(parts, "["+strings.Join(names, ", ")+"]")
		}
	}
	return strings.Join(parts, " >> "), nil
}

// PrintPlan writes the ordered steps with their dependencies
func PrintPlan(w io.Writer, steps []Step) error {
	ordered, err := Plan(steps)
	if err != nil {
		return err
	}
	chain, _ := Describe(steps)
	fmt.Fprintln(w, chain)
	fmt.Fprintln(w)
	for i, s := range ordered {
		kind := "advisory"
		if s.Required {
			kind = "required"
		}
		fmt.Fprintf(w, "%d. %-14s %-9s %s\n", i+1, s.Name, kind, s.Command)
		if len(s.DependsOn) > 0 {
			fmt.Fprintf(w, "   after: %s\n", strings.Join(s.DependsOn, ", "))
		}
	}
	return nil
}
