package tendril_test

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/registry"
)

// Example demonstrates revising an earlier request without losing it.
func Example() {
	eng, err := tendril.New(tendril.WithTypes(func(reg *graph.Registry) error {
		return reg.Register("Trip", nil, registry.MustSignature(
			registry.Param{Name: "dest", Alias: "pos1", Types: []string{graph.TypeStr}},
			registry.Param{Name: "days", Types: []string{graph.TypeInt}},
		))
	}))
	if err != nil {
		panic(err)
	}

	d := eng.NewDialog()
	ctx := context.Background()
	if _, err := d.Turn(ctx, "Trip(Lisbon, days=3)"); err != nil {
		panic(err)
	}
	if _, err := d.Turn(ctx, "revise(old=Trip?(), new=Trip?(days=5), newMode=overwrite)"); err != nil {
		panic(err)
	}

	show := func(label string, goals []*graph.Node) {
		for _, g := range goals {
			days, _ := g.Input("days").Int()
			fmt.Println(label, g.Type(), days)
		}
	}
	show("parked", d.OtherGoals())
	show("current", d.Goals())
	// Output:
	// parked Trip 3
	// current Trip 5
}

// ExampleRunner shows the REPL driving a dialogue from a script.
func ExampleRunner() {
	eng, err := tendril.New()
	if err != nil {
		panic(err)
	}

	r := &tendril.Runner{
		Input:    strings.NewReader("AND(GT(2), LT(5))\n"),
		Output:   os.Stdout,
		Headless: true,
	}
	if err := r.Run(context.Background(), eng.NewDialog()); err != nil {
		panic(err)
	}
	// Output:
	// `AND(GT(obj=Int(2)), LT(obj=Int(5)))`
	//
	// gt 2 and lt 5
}
