package dmn_test

import (
	"fmt"

	"github.com/ezachrisen/dmn"
)

// Example showing a decision that requires another decision, evaluated
// through a model
func Example() {

	// A decision producing a greeting from the input data
	greeting := dmn.NewDecision("Greeting", "greeting", dmn.NewLiteral("greeting", "greeting.expr",
		dmn.ExpressionFunc(func(c *dmn.Context) (any, error) {
			name, _ := c.Get("name")
			return fmt.Sprintf("Hello, %v", name), nil
		}),
	)).WithInputs("name")

	// A decision using the value of the first
	shout := dmn.NewDecision("Shout", "shout", dmn.NewLiteral("shout", "shout.expr",
		dmn.ExpressionFunc(func(c *dmn.Context) (any, error) {
			g, _ := c.Get("Greeting")
			return fmt.Sprintf("%v!", g), nil
		}),
	)).WithRequires("Greeting")

	m, err := dmn.NewModel("hello", greeting, shout)
	if err != nil {
		fmt.Println(err)
		return
	}

	r := dmn.NewEngine().EvaluateDecision(m, "Shout", dmn.ContextFrom(map[string]any{"name": "world"}))
	if r.HasErrors() {
		fmt.Println(r.Messages())
		return
	}
	fmt.Println(r.DecisionNames())
	fmt.Println(r.Outcome().Value)
	// Output:
	// [Greeting Shout]
	// Hello, world!
}

// Example showing a decision table with the RULE ORDER hit policy, and a
// listener observing which rules matched
func ExampleDecisionTableNode() {
	between := func(lo, hi float64) dmn.UnaryTest {
		return dmn.TestFunc(func(input any, _ *dmn.Context) (bool, error) {
			t, ok := input.(float64)
			return ok && t >= lo && t < hi, nil
		})
	}

	table := dmn.NewDecisionTable("Clothing", "clothing",
		[]dmn.InputClause{{Label: "temperature", Expr: dmn.NewLiteral("temperature", "clothing.in", dmn.Variable("temperature"))}},
		[]dmn.OutputClause{{Name: "item"}},
		dmn.TableRule{Tests: []dmn.UnaryTest{between(-50, 10)}, Outputs: []dmn.Node{dmn.NewConstant("coat", "clothing.coat", "coat")}},
		dmn.TableRule{Tests: []dmn.UnaryTest{between(-50, 20)}, Outputs: []dmn.Node{dmn.NewConstant("sweater", "clothing.sweater", "sweater")}},
		dmn.TableRule{Tests: []dmn.UnaryTest{nil}, Outputs: []dmn.Node{dmn.NewConstant("shoes", "clothing.shoes", "shoes")}},
	)
	table.HitPolicy = dmn.HitRuleOrder

	l := &dmn.ListenerFuncs{
		AfterDecisionTable: func(e dmn.DecisionTableEvent) {
			fmt.Println("matched rules", e.Matches)
		},
	}

	r := dmn.NewEngine(dmn.WithListeners(l)).Evaluate(nil, table, dmn.ContextFrom(map[string]any{"temperature": 15.0}))
	fmt.Println(r.Outcome().Value)
	// Output:
	// matched rules [2 3]
	// [sweater shoes]
}
