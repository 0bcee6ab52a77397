package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"salesdash/internal/core"
)

// writeReport prints the month's aggregates as three tables.
func writeReport(w io.Writer, month int, c core.Combined) {
	fmt.Fprintf(w, "Sales report for %s\n\n", time.Month(month))

	stats := tablewriter.NewWriter(w)
	stats.SetHeader([]string{"Total sale amount", "Sold items", "Not sold items"})
	stats.Append([]string{
		strconv.FormatFloat(c.Statistics.TotalSaleAmount, 'f', 2, 64),
		strconv.FormatInt(c.Statistics.TotalSoldItems, 10),
		strconv.FormatInt(c.Statistics.TotalNotSoldItems, 10),
	})
	stats.Render()
	fmt.Fprintln(w)

	hist := tablewriter.NewWriter(w)
	hist.SetHeader([]string{"Price range", "Items"})
	for _, e := range c.BarChartData {
		hist.Append([]string{e.Range, strconv.FormatInt(e.Count, 10)})
	}
	hist.Render()
	fmt.Fprintln(w)

	if len(c.PieChartData) == 0 {
		fmt.Fprintln(w, "No sales recorded this month.")
		return
	}
	cats := tablewriter.NewWriter(w)
	cats.SetHeader([]string{"Category", "Items"})
	for _, e := range c.PieChartData {
		cats.Append([]string{e.Category, strconv.FormatInt(e.Count, 10)})
	}
	cats.Render()
}
