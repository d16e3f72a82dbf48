package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/prodcompare/backend/internal/usecase"
)

// bestMarker flags the winning cell of an orderable row
const bestMarker = " *"

// renderTable writes the comparison as aligned plain-text columns
func renderTable(out io.Writer, table usecase.ComparisonTable) error {
	if len(table.Columns) == 0 {
		_, err := fmt.Fprintln(out, "No products selected.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := make([]string, 0, len(table.Columns)+1)
	header = append(header, "")
	for _, col := range table.Columns {
		header = append(header, col.Title)
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range table.Rows {
		cells := make([]string, 0, len(row.Cells)+1)
		cells = append(cells, row.Label)
		for _, cell := range row.Cells {
			cells = append(cells, cellText(cell))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	if err := w.Flush(); err != nil {
		return err
	}
	if len(table.BestSpecs) > 0 {
		_, err := fmt.Fprintln(out, "\n* best value")
		return err
	}
	return nil
}

func cellText(cell usecase.ComparisonCell) string {
	text := cell.Display
	switch cell.Availability {
	case usecase.AvailabilityAvailable:
		text = "Yes (" + text + ")"
	case usecase.AvailabilityUnavailable:
		text = "No (" + text + ")"
	}
	if cell.Best {
		text += bestMarker
	}
	return text
}
