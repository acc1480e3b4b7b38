package plantuml_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/airena/hfsm"
	"github.com/airena/hfsm/pkg/plantuml"
)

type Oven struct {
	hot bool
}

func heat(o *Oven)       { o.hot = true }
func cool(o *Oven)       { o.hot = false }
func isHot(o *Oven) bool { return o.hot }
func beep(*Oven)         {}
func noBehavior(*Oven)   {}

func TestGenerate(t *testing.T) {
	s := hfsm.NewStructure[string, string, *Oven]("oven")
	steps := []error{
		s.AddRoot("oven"),
		s.AddState("idle", "oven", true),
		s.AddState("cooking", "oven", false, hfsm.OnEntry(heat), hfsm.OnExit(cool)),
		s.AddState("baking", "cooking", true),
		s.AddState("door-open", "oven", false),
		s.AddTrans("idle", "start", "cooking"),
		s.AddTrans("cooking", "stop", "idle", hfsm.WithGuard(isHot), hfsm.WithAction(beep)),
		s.AddInternalTrans("baking", "tick", hfsm.WithAction(noBehavior)),
		s.AddTrans("oven", "open", "door-open"),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatal(err)
		}
	}
	var buffer bytes.Buffer
	if err := plantuml.Generate(&buffer, s.Elements()); err != nil {
		t.Fatal(err)
	}
	diagram := buffer.String()
	for _, want := range []string{
		"@startuml oven\n",
		"[*] --> oven\n",
		"state oven {\n",
		"  [*] --> idle\n",
		"  state cooking {\n",
		"    [*] --> baking\n",
		"    state baking\n",
		"  state cooking: entry / heat\n",
		"  state cooking: exit / cool\n",
		"  state door_open\n",
		"idle --> cooking : start\n",
		"cooking --> idle : stop [isHot] / beep\n",
		"baking : tick / noBehavior\n",
		"oven --> door_open : open\n",
		"@enduml\n",
	} {
		if !strings.Contains(diagram, want) {
			t.Errorf("diagram is missing %q:\n%s", want, diagram)
		}
	}
	if strings.Index(diagram, "state idle") > strings.Index(diagram, "state cooking") {
		t.Errorf("states must keep their add order:\n%s", diagram)
	}
}

func TestGenerateEmpty(t *testing.T) {
	var buffer bytes.Buffer
	if err := plantuml.Generate(&buffer, hfsm.NewStructure[string, string, *Oven]("empty").Elements()); err != nil {
		t.Fatal(err)
	}
	if buffer.String() != "@startuml empty\n@enduml\n" {
		t.Fatalf("unexpected diagram %q", buffer.String())
	}
}
