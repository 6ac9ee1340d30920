// Package graph renders the intent state machine of a tick story.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/statemachine"
)

// GraphOverlay contains dynamic session data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// OverlayFromSession highlights the actions that ran for the current objective
// and the state the session stands in.
func OverlayFromSession(s *domain.Session) *GraphOverlay {
	if s == nil {
		return nil
	}
	current := s.CurrentState
	if current == "" {
		current = domain.GlobalStateID
	}
	return &GraphOverlay{VisitedStates: slices.Clone(s.RanHandlers), CurrentState: current}
}

// GenerateMermaid produces a Mermaid flowchart of the story's state machine.
// Groups become subgraphs and action states are shaped by kind:
// - Global: ((Circle))
// - Handler: [[Subroutine]]
// - Final: ([Stadium])
// - Redirect: {{Hexagon}}
// - Default: [Rectangle]
// Transitions declared on Global are dotted, triggers are thick.
func GenerateMermaid(story *domain.Story, overlay *GraphOverlay) (string, error) {
	sm, err := statemachine.New(story.StateMachine)
	if err != nil {
		return "", fmt.Errorf("invalid state machine: %w", err)
	}
	actions := make(map[string]domain.Action, len(story.Actions))
	for _, a := range story.Actions {
		actions[a.Name] = a
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	writeState(&sb, sm, actions, domain.GlobalStateID, "    ")

	for _, id := range sm.IDs() {
		state, _ := sm.State(id)
		intents := make([]string, 0, len(state.On))
		for intent := range state.On {
			intents = append(intents, intent)
		}
		slices.Sort(intents)
		for _, intent := range intents {
			target := strings.TrimPrefix(strings.TrimSpace(state.On[intent]), "#")
			if target == "" {
				continue
			}
			arrow := fmt.Sprintf("-- \"%s\" -->", escape(intent))
			if id == domain.GlobalStateID {
				arrow = fmt.Sprintf("-. \"%s\" .->", escape(intent))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(id), arrow, sanitizeMermaidID(target))
		}
	}

	for _, a := range story.Actions {
		if trigger := strings.TrimSpace(a.Trigger); trigger != "" {
			if next, ok := sm.Next(a.Name, trigger); ok {
				fmt.Fprintf(&sb, "    %s == \"⚡ %s\" ==> %s\n", sanitizeMermaidID(a.Name), escape(trigger), sanitizeMermaidID(next))
			}
		}
		if a.TargetStory != "" {
			storyID := "story_" + sanitizeMermaidID(a.TargetStory)
			fmt.Fprintf(&sb, "    %s -.-> %s>\"%s\"]\n", sanitizeMermaidID(a.Name), storyID, escape(a.TargetStory))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if _, ok := sm.State(id); !ok || seen[safeID] {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if _, ok := sm.State(overlay.CurrentState); ok {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
		}
	}

	return sb.String(), nil
}

func writeState(sb *strings.Builder, sm *statemachine.Machine, actions map[string]domain.Action, id, indent string) {
	state, _ := sm.State(id)
	safeID := sanitizeMermaidID(id)

	switch {
	case id == domain.GlobalStateID:
		fmt.Fprintf(sb, "%s%s((\"%s\"))\n", indent, safeID, id)
		for _, child := range state.Children {
			writeState(sb, sm, actions, child, indent)
		}
	case state.IsGroup():
		fmt.Fprintf(sb, "%ssubgraph %s[\"%s\"]\n", indent, safeID, id)
		for _, child := range state.Children {
			writeState(sb, sm, actions, child, indent+"    ")
		}
		fmt.Fprintf(sb, "%send\n", indent)
	default:
		opener, closer := "[", "]"
		a := actions[id]
		switch {
		case a.TargetStory != "":
			opener, closer = "{{", "}}"
		case a.Final:
			opener, closer = "([", "])"
		case a.HasHandler():
			opener, closer = "[[", "]]"
		}
		label := id
		if a.AnswerID != "" {
			label = fmt.Sprintf("%s <br/> 💬 %s", id, a.AnswerID)
		}
		fmt.Fprintf(sb, "%s%s%s\"%s\"%s\n", indent, safeID, opener, escape(label), closer)
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
