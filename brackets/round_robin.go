package brackets

import (
	"context"
	"fmt"
	"sort"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "round_robin"
}

// Generate pairs every registration against every other exactly once.
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	regs := params.Registrations
	if len(regs) < 2 {
		return nil, fmt.Errorf("round robin requires at least 2 registrations, got %d", len(regs))
	}

	matches := make([]*BracketMatch, 0, len(regs)*(len(regs)-1)/2)
	order := 0
	for i := 0; i < len(regs); i++ {
		for j := i + 1; j < len(regs); j++ {
			r1, r2 := regs[i].ID, regs[j].ID
			order++
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("RR%d", order),
				Round:        1,
				OrderInRound: order,
				Reg1ID:       &r1,
				Reg2ID:       &r2,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].OrderInRound < matches[j].OrderInRound
	})
	return matches, nil
}
