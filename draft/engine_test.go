package draft

import (
	"errors"
	"testing"

	"github.com/draftarena/backend/models"
)

func testConfig() models.DraftConfig {
	return models.DraftConfig{
		BansPerTeam:  1,
		PicksPerTeam: 5,
		Strategy:     models.StrategyAlternating,
		TurnSeconds:  30,
		BonusSeconds: 10,
	}
}

// pickBanState returns a state already past the coin toss, with team1 as
// winner and drafting first.
func pickBanState(cfg models.DraftConfig) State {
	s := NewState(cfg)
	s.Phase = models.PhasePickBan
	s.Coin = models.DraftCoinToss{
		Team1Side: models.SideHeads,
		Team2Side: models.SideTails,
		Result:    models.SideHeads,
		Winner:    models.SlotTeam1,
	}
	s.Order = BuildOrder(cfg, models.SlotTeam1)
	s.Turn = s.Order[0].Team
	return s
}

func containsEvent(events []Event, eventType EventType) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func TestPresenceGatesCoinToss(t *testing.T) {
	s := NewState(testConfig())

	_, s, err := Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam1})
	if err != nil {
		t.Fatalf("connect team1: %v", err)
	}
	if s.Phase != models.PhaseWaiting {
		t.Fatalf("one captain present: want waiting, got %s", s.Phase)
	}

	events, s, err := Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam2})
	if err != nil {
		t.Fatalf("connect team2: %v", err)
	}
	if s.Phase != models.PhaseCoinToss {
		t.Fatalf("both captains present: want coin_toss, got %s", s.Phase)
	}
	if !containsEvent(events, EvtPhaseChanged) {
		t.Fatalf("expected PhaseChanged event, got %+v", events)
	}
}

func TestDisconnectDoesNotRegressPhase(t *testing.T) {
	s := NewState(testConfig())
	_, s, _ = Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam1})
	_, s, _ = Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam2})

	_, s, err := Apply(s, Command{Type: CmdDisconnect, Team: models.SlotTeam2})
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if s.Phase != models.PhaseCoinToss {
		t.Fatalf("disconnect regressed phase to %s", s.Phase)
	}
	if s.Team2Present {
		t.Fatalf("team2 should be marked absent")
	}
}

func TestCoinSideRace(t *testing.T) {
	s := NewState(testConfig())
	_, s, _ = Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam1})
	_, s, _ = Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam2})

	_, s, err := Apply(s, Command{Type: CmdChooseSide, Team: models.SlotTeam1, Side: models.SideHeads})
	if err != nil {
		t.Fatalf("team1 claims heads: %v", err)
	}

	// Second claim of the same side loses the race.
	_, s2, err := Apply(s, Command{Type: CmdChooseSide, Team: models.SlotTeam2, Side: models.SideHeads})
	if !errors.Is(err, ErrSideTaken) {
		t.Fatalf("want ErrSideTaken, got %v", err)
	}
	if s2.Coin.Team2Side != "" {
		t.Fatalf("rejected claim mutated state: %+v", s2.Coin)
	}

	// The only legal remaining choice is tails; flip favors team2.
	events, s, err := Apply(s, Command{
		Type: CmdChooseSide, Team: models.SlotTeam2,
		Side: models.SideTails, Flip: models.SideTails,
	})
	if err != nil {
		t.Fatalf("team2 claims tails: %v", err)
	}
	if s.Phase != models.PhasePickBan {
		t.Fatalf("toss resolved: want pick_ban, got %s", s.Phase)
	}
	if s.Coin.Winner != models.SlotTeam2 {
		t.Fatalf("flip tails: want team2 winner, got %s", s.Coin.Winner)
	}
	if s.Turn != models.SlotTeam2 {
		t.Fatalf("winner drafts first: want team2, got %s", s.Turn)
	}
	if !containsEvent(events, EvtCoinResolved) {
		t.Fatalf("expected CoinResolved event, got %+v", events)
	}
}

func TestChooseSideTwiceRejected(t *testing.T) {
	s := NewState(testConfig())
	_, s, _ = Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam1})
	_, s, _ = Apply(s, Command{Type: CmdConnect, Team: models.SlotTeam2})
	_, s, _ = Apply(s, Command{Type: CmdChooseSide, Team: models.SlotTeam1, Side: models.SideHeads})

	_, _, err := Apply(s, Command{Type: CmdChooseSide, Team: models.SlotTeam1, Side: models.SideTails})
	if !errors.Is(err, ErrSideAlreadyChosen) {
		t.Fatalf("want ErrSideAlreadyChosen, got %v", err)
	}
}

func TestSubmitActionValidation(t *testing.T) {
	cases := []struct {
		name    string
		setup   func() State
		cmd     Command
		wantErr error
	}{
		{
			name:    "out of turn",
			setup:   func() State { return pickBanState(testConfig()) },
			cmd:     Command{Type: CmdSubmitAction, Team: models.SlotTeam2, HeroID: 7, IsBan: true},
			wantErr: ErrNotYourTurn,
		},
		{
			name:    "pick during ban step",
			setup:   func() State { return pickBanState(testConfig()) },
			cmd:     Command{Type: CmdSubmitAction, Team: models.SlotTeam1, HeroID: 7, IsBan: false},
			wantErr: ErrWrongActionKind,
		},
		{
			name: "duplicate hero",
			setup: func() State {
				s := pickBanState(testConfig())
				_, s, _ = Apply(s, Command{Type: CmdSubmitAction, Team: models.SlotTeam1, HeroID: 7, IsBan: true})
				return s
			},
			cmd:     Command{Type: CmdSubmitAction, Team: models.SlotTeam2, HeroID: 7, IsBan: true},
			wantErr: ErrHeroUnavailable,
		},
		{
			name:    "action before coin toss resolves",
			setup:   func() State { return NewState(testConfig()) },
			cmd:     Command{Type: CmdSubmitAction, Team: models.SlotTeam1, HeroID: 7, IsBan: true},
			wantErr: ErrWrongPhase,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.setup()
			_, after, err := Apply(before, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(after.Actions) != len(before.Actions) {
				t.Fatalf("rejected action mutated state: %d -> %d actions",
					len(before.Actions), len(after.Actions))
			}
		})
	}
}

func TestFullDraftCompletesAtExactLength(t *testing.T) {
	s := pickBanState(testConfig())
	total := len(s.Order) // 2 bans + 10 picks

	hero := 100
	for i := 0; i < total; i++ {
		step := s.Order[len(s.Actions)]
		var events []Event
		var err error
		events, s, err = Apply(s, Command{
			Type: CmdSubmitAction, Team: step.Team, HeroID: hero, IsBan: step.IsBan,
		})
		if err != nil {
			t.Fatalf("action %d: %v", i+1, err)
		}
		hero++
		if i < total-1 {
			if s.Phase != models.PhasePickBan {
				t.Fatalf("action %d: phase advanced early to %s", i+1, s.Phase)
			}
			if !containsEvent(events, EvtTurnAdvanced) {
				t.Fatalf("action %d: expected TurnAdvanced", i+1)
			}
		} else {
			if s.Phase != models.PhaseComplete {
				t.Fatalf("final action: want complete, got %s", s.Phase)
			}
			if !containsEvent(events, EvtDraftCompleted) {
				t.Fatalf("final action: expected DraftCompleted")
			}
		}
	}

	if total != 12 {
		t.Fatalf("1 ban + 5 picks per team should take 12 actions, order has %d", total)
	}

	// Any action past completion is rejected.
	_, _, err := Apply(s, Command{Type: CmdSubmitAction, Team: models.SlotTeam1, HeroID: 999})
	if !errors.Is(err, ErrDraftComplete) {
		t.Fatalf("13th action: want ErrDraftComplete, got %v", err)
	}

	// No duplicate hero ids across the full sequence.
	seen := map[int]bool{}
	for _, a := range s.Actions {
		if seen[a.HeroID] {
			t.Fatalf("duplicate hero %d in action sequence", a.HeroID)
		}
		seen[a.HeroID] = true
	}
}

func TestTurnAlternatesPerOrder(t *testing.T) {
	s := pickBanState(testConfig())
	for i, step := range s.Order {
		if s.Turn != step.Team {
			t.Fatalf("step %d: turn %s does not match order %s", i, s.Turn, step.Team)
		}
		var err error
		_, s, err = Apply(s, Command{
			Type: CmdSubmitAction, Team: step.Team, HeroID: 200 + i, IsBan: step.IsBan,
		})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if s.Turn != models.SlotNone {
		t.Fatalf("completed draft should have no active turn, got %s", s.Turn)
	}
}

func TestAutoPickCandidate(t *testing.T) {
	s := pickBanState(testConfig())
	_, s, _ = Apply(s, Command{Type: CmdSubmitAction, Team: models.SlotTeam1, HeroID: 1, IsBan: true})
	_, s, _ = Apply(s, Command{Type: CmdSubmitAction, Team: models.SlotTeam2, HeroID: 2, IsBan: true})

	pool := []int{5, 3, 2, 1, 9}
	id, ok := AutoPickCandidate(s, pool)
	if !ok {
		t.Fatalf("expected a candidate")
	}
	if id != 3 {
		t.Fatalf("want lowest available id 3, got %d", id)
	}

	exhausted := State{Actions: []models.DraftAction{{HeroID: 4}}}
	if _, ok := AutoPickCandidate(exhausted, []int{4}); ok {
		t.Fatalf("exhausted pool should yield no candidate")
	}
}
