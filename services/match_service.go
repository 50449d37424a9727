package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/realtime"
	"github.com/draftarena/backend/repositories"
)

var scorePattern = regexp.MustCompile(`^\d{1,3}[:-]\d{1,3}$`)

type ReportResultInput struct {
	Score       *string `json:"score,omitempty"`
	WinnerRegID int     `json:"winner_reg_id"`
}

type MatchService interface {
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ReportResult(ctx context.Context, matchID, currentUserID int, input ReportResultInput) (*models.Match, error)
}

type matchService struct {
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	hub            *realtime.Hub
	logger         *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	hub *realtime.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("get match %d: %w", id, err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, round, status)
}

// ReportResult records the outcome of a match, advances the winner into
// the follow-up bracket slot, and closes the tournament when the final
// concludes. Only the tournament organizer may report results.
func (s *matchService) ReportResult(ctx context.Context, matchID, currentUserID int, input ReportResultInput) (*models.Match, error) {
	match, err := s.GetMatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("get tournament %d: %w", match.TournamentID, err)
	}
	if tournament.OrganizerID != currentUserID {
		return nil, ErrOrganizerOnly
	}
	if tournament.Status != models.StatusActive {
		return nil, ErrTournamentNotActive
	}

	if match.Status == models.MatchCompleted {
		return nil, ErrMatchAlreadyCompleted
	}
	if match.Reg1ID == nil || match.Reg2ID == nil {
		return nil, ErrMatchMissingParticipant
	}
	if input.WinnerRegID != *match.Reg1ID && input.WinnerRegID != *match.Reg2ID {
		return nil, ErrInvalidWinner
	}
	if input.Score != nil && !scorePattern.MatchString(*input.Score) {
		return nil, fmt.Errorf("%w: score must look like 2:1", ErrValidationFailed)
	}

	if err := s.matchRepo.UpdateScoreStatusWinner(ctx, matchID, input.Score, models.MatchCompleted, &input.WinnerRegID); err != nil {
		return nil, fmt.Errorf("record result of match %d: %w", matchID, err)
	}
	match.Score = input.Score
	match.Status = models.MatchCompleted
	match.WinnerRegID = &input.WinnerRegID

	if match.NextMatchID != nil && match.WinnerToSlot != nil {
		if err := s.advanceWinner(ctx, match); err != nil {
			return nil, err
		}
	} else if tournament.BracketType == models.BracketSingleElimination {
		// No follow-up match: this was the final.
		if err := s.tournamentRepo.UpdateWinner(ctx, nil, tournament.ID, &input.WinnerRegID); err != nil {
			return nil, fmt.Errorf("record tournament winner: %w", err)
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, models.StatusCompleted); err != nil {
			return nil, fmt.Errorf("complete tournament %d: %w", tournament.ID, err)
		}
		s.logger.Info("tournament completed",
			slog.Int("tournament_id", tournament.ID),
			slog.Int("winner_reg_id", input.WinnerRegID))
	}

	s.broadcastResult(tournament.ID, match)
	return match, nil
}

func (s *matchService) advanceWinner(ctx context.Context, match *models.Match) error {
	var reg1, reg2 *int
	switch *match.WinnerToSlot {
	case 1:
		reg1 = match.WinnerRegID
	case 2:
		reg2 = match.WinnerRegID
	default:
		return fmt.Errorf("match %d has invalid winner slot %d", match.ID, *match.WinnerToSlot)
	}
	if err := s.matchRepo.UpdateRegistrations(ctx, nil, *match.NextMatchID, reg1, reg2); err != nil {
		return fmt.Errorf("advance winner of match %d: %w", match.ID, err)
	}
	return nil
}

func (s *matchService) broadcastResult(tournamentID int, match *models.Match) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(realtime.TournamentRoom(tournamentID), realtime.Message{
		Type:    "match_result",
		Payload: match,
	})
}
