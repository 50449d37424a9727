package draft

import (
	"testing"

	"github.com/draftarena/backend/models"
)

func TestBuildOrderAlternating(t *testing.T) {
	cfg := models.DraftConfig{BansPerTeam: 2, PicksPerTeam: 3, Strategy: models.StrategyAlternating}
	order := BuildOrder(cfg, models.SlotTeam2)

	want := []TurnStep{
		{models.SlotTeam2, true}, {models.SlotTeam1, true},
		{models.SlotTeam2, true}, {models.SlotTeam1, true},
		{models.SlotTeam2, false}, {models.SlotTeam1, false},
		{models.SlotTeam2, false}, {models.SlotTeam1, false},
		{models.SlotTeam2, false}, {models.SlotTeam1, false},
	}
	if len(order) != len(want) {
		t.Fatalf("want %d steps, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("step %d: want %+v, got %+v", i, want[i], order[i])
		}
	}
}

func TestBuildOrderSnake(t *testing.T) {
	cfg := models.DraftConfig{BansPerTeam: 1, PicksPerTeam: 3, Strategy: models.StrategySnake}
	order := BuildOrder(cfg, models.SlotTeam1)

	// 1 ban each, then picks W L L W W L.
	want := []TurnStep{
		{models.SlotTeam1, true}, {models.SlotTeam2, true},
		{models.SlotTeam1, false}, {models.SlotTeam2, false},
		{models.SlotTeam2, false}, {models.SlotTeam1, false},
		{models.SlotTeam1, false}, {models.SlotTeam2, false},
	}
	if len(order) != len(want) {
		t.Fatalf("want %d steps, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("step %d: want %+v, got %+v", i, want[i], order[i])
		}
	}

	counts := map[models.TeamSlot]int{}
	for _, step := range order {
		if !step.IsBan {
			counts[step.Team]++
		}
	}
	if counts[models.SlotTeam1] != 3 || counts[models.SlotTeam2] != 3 {
		t.Fatalf("snake picks unbalanced: %+v", counts)
	}
}
