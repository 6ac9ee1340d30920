// Package statemachine resolves intent transitions over the hierarchical state
// graph of a tick story.
package statemachine

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/tickstory/pkg/domain"
)

const noParent = -1

// Node is a read-only view of a state.
type Node struct {
	ID       string
	Parent   string
	Initial  string
	Children []string
	On       map[string]string
}

// IsGroup reports whether the state groups other states.
func (n Node) IsGroup() bool {
	return len(n.Children) > 0
}

type node struct {
	id       string
	parent   int
	children []int
	initial  string
	on       map[string]string
}

// Machine is an immutable arena of states. Parents are back-references by index.
type Machine struct {
	nodes []node
	index map[string]int
}

// New builds a machine from a state tree. State ids must be unique.
func New(root domain.StateNode) (*Machine, error) {
	m := &Machine{index: make(map[string]int)}
	if err := m.add(root, noParent); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Machine) add(def domain.StateNode, parent int) error {
	if strings.TrimSpace(def.ID) == "" {
		return fmt.Errorf("state without id under %q", m.idOf(parent))
	}
	if _, exists := m.index[def.ID]; exists {
		return fmt.Errorf("duplicate state id %q", def.ID)
	}

	idx := len(m.nodes)
	m.nodes = append(m.nodes, node{
		id:      def.ID,
		parent:  parent,
		initial: def.Initial,
		on:      def.On,
	})
	m.index[def.ID] = idx
	if parent != noParent {
		m.nodes[parent].children = append(m.nodes[parent].children, idx)
	}

	// Map iteration order is random; sort children so views are stable.
	keys := make([]string, 0, len(def.States))
	for k := range def.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		child := def.States[k]
		if child.ID == "" {
			child.ID = k
		}
		if err := m.add(child, idx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) idOf(idx int) string {
	if idx == noParent {
		return ""
	}
	return m.nodes[idx].id
}

// State returns the state with the given id.
func (m *Machine) State(id string) (Node, bool) {
	idx, ok := m.index[id]
	if !ok {
		return Node{}, false
	}
	n := m.nodes[idx]
	view := Node{
		ID:      n.id,
		Parent:  m.idOf(n.parent),
		Initial: n.initial,
		On:      n.on,
	}
	for _, c := range n.children {
		view.Children = append(view.Children, m.nodes[c].id)
	}
	return view, true
}

// Parent returns the id of the state's parent, if any.
func (m *Machine) Parent(id string) (string, bool) {
	idx, ok := m.index[id]
	if !ok || m.nodes[idx].parent == noParent {
		return "", false
	}
	return m.nodes[m.nodes[idx].parent].id, true
}

// Initial descends from id through the groups' initial states down to a leaf.
func (m *Machine) Initial(id string) (string, bool) {
	idx, ok := m.index[id]
	if !ok {
		return "", false
	}
	for range m.nodes {
		n := m.nodes[idx]
		if len(n.children) == 0 {
			return n.id, true
		}
		next, ok := m.index[targetID(n.initial)]
		if !ok || m.nodes[next].parent != idx {
			return "", false
		}
		idx = next
	}
	return "", false
}

// Next resolves the state reached from current when intent is detected.
// Transitions are looked up on current first, then on each ancestor in turn.
// A group target resolves to its initial leaf.
func (m *Machine) Next(current, intent string) (string, bool) {
	idx, ok := m.index[current]
	if !ok {
		return "", false
	}
	for i := idx; i != noParent; i = m.nodes[i].parent {
		if target, ok := m.nodes[i].on[intent]; ok && target != "" {
			return m.Initial(targetID(target))
		}
	}
	return "", false
}

// IsDirectTransition reports whether intent is declared on the state itself.
func (m *Machine) IsDirectTransition(state, intent string) bool {
	idx, ok := m.index[state]
	if !ok {
		return false
	}
	target, ok := m.nodes[idx].on[intent]
	return ok && target != ""
}

// ContainsTransition reports whether any state declares a transition on intent.
func (m *Machine) ContainsTransition(intent string) bool {
	for _, n := range m.nodes {
		if target, ok := n.on[intent]; ok && target != "" {
			return true
		}
	}
	return false
}

// Transitions returns every intent used by a transition, sorted.
func (m *Machine) Transitions() []string {
	var out []string
	for _, n := range m.nodes {
		for intent := range n.on {
			if !slices.Contains(out, intent) {
				out = append(out, intent)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Targets returns the unresolved target of every transition, keyed by "state/intent".
func (m *Machine) Targets() map[string]string {
	out := make(map[string]string)
	for _, n := range m.nodes {
		for intent, target := range n.on {
			out[n.id+"/"+intent] = targetID(target)
		}
	}
	return out
}

// LeafIDs returns the ids of every state that is not a group, sorted.
func (m *Machine) LeafIDs() []string {
	var out []string
	for _, n := range m.nodes {
		if len(n.children) == 0 {
			out = append(out, n.id)
		}
	}
	sort.Strings(out)
	return out
}

// IDs returns every state id in definition order (parents before children).
func (m *Machine) IDs() []string {
	out := make([]string, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.id
	}
	return out
}

// targetID strips the "#" reference marker used by state machine definitions.
func targetID(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "#")
}
