package allocator

import (
	"sort"

	"print-scheduler/internal/models"
)

// dependencyError describes the jobs still waiting at the fixed point: which dependencies
// never got placed and which of the jobs sit on a true cycle
func (a *Allocator) dependencyError(blocked []models.Job, all map[string]models.Job) *models.DependencyCycleError {
	inBlocked := make(map[string]bool, len(blocked))
	for _, j := range blocked {
		inBlocked[j.ID] = true
	}

	err := &models.DependencyCycleError{Unmet: make(map[string][]string, len(blocked))}
	graph := make(map[string][]string, len(blocked))
	for _, j := range blocked {
		err.JobIDs = append(err.JobIDs, j.ID)
		for _, dep := range j.Dependencies {
			if _, ok := a.dependencyEnd(dep, all); ok {
				continue
			}
			err.Unmet[j.ID] = append(err.Unmet[j.ID], dep)
			if inBlocked[dep] {
				graph[j.ID] = append(graph[j.ID], dep)
			}
		}
	}
	sort.Strings(err.JobIDs)
	err.Cyclic = cyclicNodes(err.JobIDs, graph)
	return err
}

// cyclicNodes returns the sorted nodes that belong to a strongly connected component of
// size > 1 or carry a self edge (Tarjan)
func cyclicNodes(nodes []string, graph map[string][]string) []string {
	index := map[string]int{}
	low := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var out []string
	next := 0

	var visit func(v string)
	visit = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, seen := index[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 || selfLoop(v, graph) {
			out = append(out, component...)
		}
	}

	for _, v := range nodes {
		if _, seen := index[v]; !seen {
			visit(v)
		}
	}
	sort.Strings(out)
	return out
}

func selfLoop(v string, graph map[string][]string) bool {
	for _, w := range graph[v] {
		if w == v {
			return true
		}
	}
	return false
}
