package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"schematics/internal/catalog"
)

func titles(items []catalog.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

var sample = []catalog.Item{
	{Title: "spice Harvester"},
	{Title: "Dune Tank"},
	{Title: "Ornithopter"},
	{Title: "assault Ornithopter"},
}

func TestSortDirections(t *testing.T) {
	e := NewEngine()
	asc := e.ComputeVisible(sample, Query{SortAsc: true}, nil, nil)
	assert.Equal(t, []string{"assault Ornithopter", "Dune Tank", "Ornithopter", "spice Harvester"}, titles(asc))

	desc := e.ComputeVisible(sample, Query{SortAsc: false}, nil, nil)
	assert.Equal(t, []string{"spice Harvester", "Ornithopter", "Dune Tank", "assault Ornithopter"}, titles(desc))
}

func TestSearchMatchesTitleOrNote(t *testing.T) {
	e := NewEngine()
	notes := map[string]string{"dune tank": "Needs SPICE refill"}

	got := e.ComputeVisible(sample, Query{Search: "  Spice ", SortAsc: true}, nil, notes)
	assert.Equal(t, []string{"Dune Tank", "spice Harvester"}, titles(got))

	got = e.ComputeVisible(sample, Query{Search: "ornith", SortAsc: true}, nil, notes)
	assert.Equal(t, []string{"assault Ornithopter", "Ornithopter"}, titles(got))

	assert.Empty(t, e.ComputeVisible(sample, Query{Search: "zzz"}, nil, notes))
}

func TestHideOwned(t *testing.T) {
	e := NewEngine()
	owned := map[string]bool{"dune tank": true, "ornithopter": false}

	got := e.ComputeVisible(sample, Query{HideOwned: true, SortAsc: true}, owned, nil)
	assert.Equal(t, []string{"assault Ornithopter", "Ornithopter", "spice Harvester"}, titles(got))
}

func TestHideOwnedWithNothingOwnedIsNoop(t *testing.T) {
	e := NewEngine()
	shown := e.ComputeVisible(sample, Query{SortAsc: true}, map[string]bool{}, nil)
	hidden := e.ComputeVisible(sample, Query{HideOwned: true, SortAsc: true}, map[string]bool{}, nil)
	assert.Equal(t, shown, hidden)
}

func TestComputeVisibleIsPure(t *testing.T) {
	e := NewEngine()
	items := append([]catalog.Item(nil), sample...)
	owned := map[string]bool{"dune tank": true}
	notes := map[string]string{"dune tank": "x"}

	first := e.ComputeVisible(items, Query{Search: "o", HideOwned: true}, owned, notes)
	second := e.ComputeVisible(items, Query{Search: "o", HideOwned: true}, owned, notes)

	assert.Equal(t, first, second)
	assert.Equal(t, sample, items)
	assert.Equal(t, map[string]bool{"dune tank": true}, owned)
	assert.Equal(t, map[string]string{"dune tank": "x"}, notes)
}

func TestStateQuery(t *testing.T) {
	s := NewState()
	assert.True(t, s.SortAsc)
	s.Search = "x"
	s.HideOwned = true
	assert.Equal(t, Query{Search: "x", HideOwned: true, SortAsc: true}, s.Query())
}
