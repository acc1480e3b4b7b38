// Package plantuml renders a state machine structure as a PlantUML state
// diagram.
package plantuml

import (
	"fmt"
	"io"
	"strings"

	"github.com/airena/hfsm/elements"
	"github.com/airena/hfsm/kind"
)

var replacer = strings.NewReplacer("-", "_", " ", "_", "/", "_", ".", "_", ":", "_")

func idFromName(name string) string {
	return replacer.Replace(name)
}

// labelFromFunc shortens a qualified function name such as
// "main.(*Light).enterRed-fm" to "enterRed".
func labelFromFunc(name string) string {
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

type generator struct {
	builder strings.Builder
	states  map[string]elements.State
}

func (g *generator) state(depth int, state elements.State) {
	id := idFromName(state.Id())
	indent := strings.Repeat(" ", depth*2)
	children := state.Children()
	if len(children) == 0 {
		fmt.Fprintf(&g.builder, "%sstate %s\n", indent, id)
	} else {
		fmt.Fprintf(&g.builder, "%sstate %s {\n", indent, id)
		if initial := state.Initial(); initial != "" {
			fmt.Fprintf(&g.builder, "%s  [*] --> %s\n", indent, idFromName(initial))
		}
		for _, child := range children {
			if s, ok := g.states[child]; ok {
				g.state(depth+1, s)
			}
		}
		fmt.Fprintf(&g.builder, "%s}\n", indent)
	}
	if entry := state.Entry(); entry != "" {
		fmt.Fprintf(&g.builder, "%sstate %s: entry / %s\n", indent, id, labelFromFunc(entry))
	}
	if exit := state.Exit(); exit != "" {
		fmt.Fprintf(&g.builder, "%sstate %s: exit / %s\n", indent, id, labelFromFunc(exit))
	}
}

func (g *generator) transition(transition elements.Transition) {
	label := transition.Event()
	if guard := transition.Guard(); guard != "" {
		label = fmt.Sprintf("%s [%s]", label, labelFromFunc(guard))
	}
	if effect := transition.Effect(); effect != "" {
		label = fmt.Sprintf("%s / %s", label, labelFromFunc(effect))
	}
	source := idFromName(transition.Source())
	if kind.Is(transition.Kind(), elements.InternalKind) {
		fmt.Fprintf(&g.builder, "%s : %s\n", source, label)
		return
	}
	fmt.Fprintf(&g.builder, "%s --> %s : %s\n", source, idFromName(transition.Target()), label)
}

// Generate writes model as a PlantUML diagram: nested states with their
// initial arrows first, then every transition labelled
// "event [guard] / effect".
func Generate(writer io.Writer, model elements.Model) error {
	g := &generator{states: map[string]elements.State{}}
	states := model.States()
	for _, state := range states {
		g.states[state.Id()] = state
	}
	fmt.Fprintf(&g.builder, "@startuml %s\n", idFromName(model.Id()))
	if root, ok := g.states[model.Root()]; ok {
		fmt.Fprintf(&g.builder, "[*] --> %s\n", idFromName(root.Id()))
		g.state(0, root)
	}
	for _, state := range states {
		for _, transition := range state.Transitions() {
			g.transition(transition)
		}
	}
	fmt.Fprintln(&g.builder, "@enduml")
	_, err := io.WriteString(writer, g.builder.String())
	return err
}
