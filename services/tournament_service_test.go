package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/draftarena/backend/models"
)

func validTournament() *models.Tournament {
	now := time.Now()
	return &models.Tournament{
		Name:        "Spring Cup",
		Game:        "MOBA Arena",
		OrganizerID: 1,
		BracketType: models.BracketSingleElimination,
		RegDate:     now.Add(24 * time.Hour),
		StartDate:   now.Add(48 * time.Hour),
		EndDate:     now.Add(72 * time.Hour),
		MaxTeams:    8,

		DraftBansPerTeam:  1,
		DraftPicksPerTeam: 5,
		DraftStrategy:     string(models.StrategyAlternating),
		DraftTurnSeconds:  30,
		DraftBonusSeconds: 10,
	}
}

func TestValidateTournament(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validateTournament(validTournament()))
	})

	t.Run("missing name", func(t *testing.T) {
		tr := validTournament()
		tr.Name = ""
		assert.ErrorIs(t, validateTournament(tr), ErrValidationFailed)
	})

	t.Run("capacity below minimum", func(t *testing.T) {
		tr := validTournament()
		tr.MaxTeams = 1
		assert.ErrorIs(t, validateTournament(tr), ErrTournamentInvalidCapacity)
	})

	t.Run("registration after start", func(t *testing.T) {
		tr := validTournament()
		tr.RegDate = tr.StartDate.Add(time.Hour)
		assert.ErrorIs(t, validateTournament(tr), ErrTournamentInvalidRegDate)
	})

	t.Run("start after end", func(t *testing.T) {
		tr := validTournament()
		tr.EndDate = tr.StartDate.Add(-time.Hour)
		assert.ErrorIs(t, validateTournament(tr), ErrTournamentInvalidDateRange)
	})

	t.Run("unknown bracket type", func(t *testing.T) {
		tr := validTournament()
		tr.BracketType = "double_elimination"
		assert.ErrorIs(t, validateTournament(tr), ErrValidationFailed)
	})

	t.Run("draft config out of bounds", func(t *testing.T) {
		tr := validTournament()
		tr.DraftPicksPerTeam = 0
		assert.ErrorIs(t, validateTournament(tr), ErrDraftConfigInvalid)

		tr = validTournament()
		tr.DraftStrategy = "random"
		assert.ErrorIs(t, validateTournament(tr), ErrDraftConfigInvalid)

		tr = validTournament()
		tr.DraftTurnSeconds = 2
		assert.ErrorIs(t, validateTournament(tr), ErrDraftConfigInvalid)
	})
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    models.TournamentStatus
		to      models.TournamentStatus
		allowed bool
	}{
		{models.StatusSoon, models.StatusRegistration, true},
		{models.StatusRegistration, models.StatusActive, true},
		{models.StatusActive, models.StatusCompleted, true},

		{models.StatusSoon, models.StatusActive, false},
		{models.StatusSoon, models.StatusCompleted, false},
		{models.StatusRegistration, models.StatusCompleted, false},
		{models.StatusRegistration, models.StatusSoon, false},
		{models.StatusActive, models.StatusRegistration, false},
		{models.StatusCompleted, models.StatusActive, false},
		{models.StatusActive, models.StatusActive, false},

		{models.StatusSoon, models.StatusCanceled, true},
		{models.StatusRegistration, models.StatusCanceled, true},
		{models.StatusActive, models.StatusCanceled, true},
		{models.StatusCompleted, models.StatusCanceled, false},
	}

	for _, tc := range cases {
		got := isValidTransition(tc.from, tc.to)
		assert.Equalf(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}
