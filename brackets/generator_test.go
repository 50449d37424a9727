package brackets

import (
	"context"
	"testing"

	"github.com/draftarena/backend/models"
)

func regs(n int) []*models.Registration {
	out := make([]*models.Registration, n)
	for i := 0; i < n; i++ {
		out[i] = &models.Registration{ID: i + 1, TournamentID: 1, TeamID: i + 1}
	}
	return out
}

func TestSingleEliminationPowerOfTwo(t *testing.T) {
	g := NewSingleEliminationGenerator()
	matches, err := g.Generate(context.Background(), GenerateParams{Registrations: regs(8)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 8 teams: 4 + 2 + 1 matches.
	if len(matches) != 7 {
		t.Fatalf("want 7 matches, got %d", len(matches))
	}
	for _, m := range matches[:4] {
		if m.Round != 1 || m.IsBye {
			t.Fatalf("round 1 match malformed: %+v", m)
		}
		if m.Reg1ID == nil || m.Reg2ID == nil {
			t.Fatalf("round 1 match missing registrations: %+v", m)
		}
	}
	final := matches[len(matches)-1]
	if final.Round != 3 || !final.IsPlaceholder {
		t.Fatalf("final should be a round 3 placeholder: %+v", final)
	}
}

func TestSingleEliminationWithByes(t *testing.T) {
	g := NewSingleEliminationGenerator()
	matches, err := g.Generate(context.Background(), GenerateParams{Registrations: regs(6)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	byes := 0
	for _, m := range matches {
		if m.IsBye {
			byes++
			if m.ByeRegID == nil {
				t.Fatalf("bye without advancing registration: %+v", m)
			}
		}
	}
	// Bracket of 8 with 6 entrants leaves 2 byes.
	if byes != 2 {
		t.Fatalf("want 2 byes, got %d", byes)
	}
}

func TestSingleEliminationEverySlotReachable(t *testing.T) {
	g := NewSingleEliminationGenerator()
	// Fields that leave byes in round one.
	for _, n := range []int{3, 5, 6, 7, 12, 13} {
		matches, err := g.Generate(context.Background(), GenerateParams{Registrations: regs(n)})
		if err != nil {
			t.Fatalf("Generate(%d): %v", n, err)
		}
		for _, m := range matches {
			if m.IsBye {
				continue
			}
			if m.Reg1ID == nil && m.SourceMatch1UID == nil {
				t.Fatalf("%d teams: match %s slot 1 can never be filled: %+v", n, m.UID, m)
			}
			if m.Reg2ID == nil && m.SourceMatch2UID == nil {
				t.Fatalf("%d teams: match %s slot 2 can never be filled: %+v", n, m.UID, m)
			}
		}
	}
}

func TestSingleEliminationTooFew(t *testing.T) {
	g := NewSingleEliminationGenerator()
	if _, err := g.Generate(context.Background(), GenerateParams{Registrations: regs(1)}); err == nil {
		t.Fatal("expected error for a single registration")
	}
}

func TestRoundRobinPairingCount(t *testing.T) {
	g := NewRoundRobinGenerator()
	matches, err := g.Generate(context.Background(), GenerateParams{Registrations: regs(5)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// C(5,2) pairings.
	if len(matches) != 10 {
		t.Fatalf("want 10 matches, got %d", len(matches))
	}

	seen := map[[2]int]bool{}
	for _, m := range matches {
		key := [2]int{*m.Reg1ID, *m.Reg2ID}
		if seen[key] {
			t.Fatalf("duplicate pairing %v", key)
		}
		seen[key] = true
	}
}
