package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RenderTrace renders a trace as text, one line per step followed by the
// indented flash operations it issued:
//
//	3 write 0x0000 aabb -> ok
//	  write 0x0002 aabb
//	  write 0x0004 00
func RenderTrace(name string, trace []TraceEvent) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range trace {
		fmt.Fprintf(&b, "%d %s", ev.Step, ev.Op)
		if ev.Args != "" {
			b.WriteString(" " + ev.Args)
		}
		b.WriteString(" -> " + ev.Code)
		if ev.Output != "" {
			b.WriteString(" " + ev.Output)
		}
		b.WriteByte('\n')
		for _, f := range ev.Flash {
			b.WriteString("  " + f.String() + "\n")
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden. Expectation failures in the
// scenario fail the test as well.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, RenderTrace(name, result.Trace))
}
