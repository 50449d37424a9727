package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

type node struct {
	regID          *int
	sourceMatchUID *string
	isBye          bool
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "single_elimination"
}

// Generate builds a full single-elimination tree. When the field is not a
// power of two, the tail of round one is filled with byes whose teams
// advance directly.
func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	regs := params.Registrations
	n := len(regs)
	if n < 2 {
		return nil, errors.New("single elimination requires at least 2 registrations")
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(numRounds)
	matches := make([]*BracketMatch, 0, bracketSize-1)

	seeds := make([]*node, bracketSize)
	for i := 0; i < n; i++ {
		id := regs[i].ID
		seeds[i] = &node{regID: &id}
	}
	for i := n; i < bracketSize; i++ {
		seeds[i] = &node{isBye: true}
	}

	// Round one pairs seed i against seed bracketSize-1-i. The byes sit at
	// the tail of the seed list, and bracketSize/2 < n, so every bye meets
	// a real team and the later rounds never see an empty slot.
	current := make([]*node, bracketSize)
	for i := 0; i < bracketSize/2; i++ {
		current[2*i] = seeds[i]
		current[2*i+1] = seeds[bracketSize-1-i]
	}

	for r := 1; r <= numRounds; r++ {
		next := make([]*node, 0, len(current)/2)
		inRound := 0

		for i := 0; i < len(current); i += 2 {
			n1, n2 := current[i], current[i+1]

			inRound++
			uid := fmt.Sprintf("R%dM%d", r, inRound)
			bm := &BracketMatch{UID: uid, Round: r, OrderInRound: inRound}

			switch {
			case n1.regID != nil && n2.isBye:
				bm.IsBye = true
				bm.ByeRegID = n1.regID
				bm.Reg1ID = n1.regID
				next = append(next, &node{regID: n1.regID})

			case n2.regID != nil && n1.isBye:
				bm.IsBye = true
				bm.ByeRegID = n2.regID
				bm.Reg1ID = n2.regID
				next = append(next, &node{regID: n2.regID})

			default:
				bm.Reg1ID = n1.regID
				bm.Reg2ID = n2.regID
				bm.SourceMatch1UID = n1.sourceMatchUID
				bm.SourceMatch2UID = n2.sourceMatchUID
				bm.IsPlaceholder = n1.sourceMatchUID != nil || n2.sourceMatchUID != nil
				next = append(next, &node{sourceMatchUID: &uid})
			}

			matches = append(matches, bm)
		}
		current = next
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})
	return matches, nil
}
