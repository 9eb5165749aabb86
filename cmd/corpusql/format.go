package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
)

// printResultTable renders find() output as a table.
func printResultTable(rows []string) {
	if len(rows) == 0 {
		fmt.Println("_No rows_")
		return
	}
	b := &strings.Builder{}
	table := tablewriter.NewTable(b)
	table.Header([]string{"match"})
	for _, row := range rows {
		table.Append([]string{row})
	}
	table.Render()
	fmt.Print(b.String())
	fmt.Printf("_%d rows_\n", len(rows))
}

// printComponentTable renders `info`'s component list.
func printComponentTable(comps []componentRow) {
	b := &strings.Builder{}
	table := tablewriter.NewTable(b)
	table.Header([]string{"type", "layer", "name", "nodes", "edges", "cyclic"})
	for _, c := range comps {
		table.Append([]string{
			c.Type, c.Layer, c.Name,
			fmt.Sprintf("%d", c.Stats.Nodes),
			fmt.Sprintf("%d", c.NumEdges),
			fmt.Sprintf("%t", c.Stats.Cyclic),
		})
	}
	table.Render()
	fmt.Print(b.String())
}

type componentRow struct {
	Type, Layer, Name string
	Stats             graphstorage.Statistics
	NumEdges          int
}
