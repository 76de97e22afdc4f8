package session

import "github.com/cloo-solutions/skumatch/internal/domain"

// Header is the fixed header row of the results table.
var Header = []string{"Description", "SKU", "Barcode", "Unit", "Match"}

// BlankOptionLabel labels the "no selection" entry of every match selector.
const BlankOptionLabel = "Select a match"

// Option is one entry of a row's match selector.
type Option struct {
	Choice   int
	Label    string
	Selected bool
}

// Row is the display form of one search result.
type Row struct {
	Index   int
	Query   string
	SKU     string
	Barcode string
	Unit    string
	Options []Option
}

// View is a snapshot of everything the results screen shows.
type View struct {
	State          State
	FileName       string
	Header         []string
	Rows           []Row
	ConfirmVisible bool
	Selections     domain.Mapping
}

// buildRow derives every cell of a row from the result and its current choice.
func buildRow(index int, result domain.SearchResult, choice int) Row {
	row := Row{
		Index:   index,
		Query:   result.Query,
		SKU:     result.ID,
		Barcode: domain.NotAvailable,
		Unit:    domain.NotAvailable,
	}

	if choice != NoSelection && choice < len(result.Matches) {
		doc := result.Matches[choice].Document
		if doc.ID != "" {
			row.SKU = doc.ID
			row.Barcode = domain.OrNotAvailable(doc.Barcode)
			row.Unit = domain.OrNotAvailable(doc.Unit)
		}
	}

	row.Options = make([]Option, 0, len(result.Matches)+1)
	row.Options = append(row.Options, Option{
		Choice:   NoSelection,
		Label:    BlankOptionLabel,
		Selected: choice == NoSelection,
	})
	for i, m := range result.Matches {
		row.Options = append(row.Options, Option{
			Choice:   i,
			Label:    m.Document.Name,
			Selected: choice == i,
		})
	}

	return row
}
