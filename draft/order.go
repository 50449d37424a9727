package draft

import "github.com/draftarena/backend/models"

// TurnStep is one slot of the fixed ban/pick order.
type TurnStep struct {
	Team  models.TeamSlot
	IsBan bool
}

func otherSlot(t models.TeamSlot) models.TeamSlot {
	if t == models.SlotTeam1 {
		return models.SlotTeam2
	}
	return models.SlotTeam1
}

// BuildOrder produces the full action sequence for a session: all bans
// first, alternating starting with the coin-toss winner, then the picks
// laid out per the configured strategy.
//
//	alternating: W L W L W L ...
//	snake:       W L L W W L L W ...
func BuildOrder(cfg models.DraftConfig, first models.TeamSlot) []TurnStep {
	second := otherSlot(first)
	order := make([]TurnStep, 0, 2*(cfg.BansPerTeam+cfg.PicksPerTeam))

	for i := 0; i < cfg.BansPerTeam; i++ {
		order = append(order,
			TurnStep{Team: first, IsBan: true},
			TurnStep{Team: second, IsBan: true},
		)
	}

	totalPicks := 2 * cfg.PicksPerTeam
	switch cfg.Strategy {
	case models.StrategySnake:
		// Pairs after the opening pick alternate ownership: W | LL | WW | ...
		team := first
		order = append(order, TurnStep{Team: team})
		placed := 1
		for placed < totalPicks {
			team = otherSlot(team)
			for i := 0; i < 2 && placed < totalPicks; i++ {
				order = append(order, TurnStep{Team: team})
				placed++
			}
		}
	default: // models.StrategyAlternating
		team := first
		for i := 0; i < totalPicks; i++ {
			order = append(order, TurnStep{Team: team})
			team = otherSlot(team)
		}
	}
	return order
}
