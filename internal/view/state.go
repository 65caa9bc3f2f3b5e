package view

import "schematics/internal/catalog"

// State is the transient view of one session. It is never persisted.
type State struct {
	Search    string
	HideOwned bool
	SortAsc   bool
	Visible   []catalog.Item
}

func NewState() *State {
	return &State{SortAsc: true}
}

func (s *State) Query() Query {
	return Query{Search: s.Search, HideOwned: s.HideOwned, SortAsc: s.SortAsc}
}
