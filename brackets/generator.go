package brackets

import (
	"context"

	"github.com/draftarena/backend/models"
)

// BracketMatch is one generated slot of a bracket, before persistence.
// Registration ids are nil for placeholder matches fed by earlier rounds.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Reg1ID *int
	Reg2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string

	IsPlaceholder bool

	IsBye    bool
	ByeRegID *int
}

type GenerateParams struct {
	Tournament    *models.Tournament
	Registrations []*models.Registration
}

type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error)
	Name() string
}
