package tui

import (
	"fmt"

	"travis-log-fetch/src/contracts"
)

// Item is one handled job log in the list. It implements bubbles/list.Item.
type Item struct {
	Record contracts.FetchRecord
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Record.Slug + " " + i.Record.JobNumber }

// Title returns the primary text for the item.
func (i Item) Title() string { return fmt.Sprintf("%s %s", i.Record.Slug, i.Record.JobNumber) }

// Description returns the secondary text for the item.
func (i Item) Description() string { return i.Record.Path }
