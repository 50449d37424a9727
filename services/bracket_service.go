package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/draftarena/backend/brackets"
	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/repositories"
)

// BracketService generates the match grid for a tournament and persists it
// in a single transaction. Matches are created first, then linked to their
// follow-up matches in a second pass.
type BracketService interface {
	GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error)
	GetFullTournamentData(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error)
}

type bracketService struct {
	db               *sql.DB
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	logger           *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:               db,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		logger:           logger,
	}
}

func (s *bracketService) GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error) {
	existing, err := s.matchRepo.ListByTournament(ctx, tournament.ID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("check existing matches for tournament %d: %w", tournament.ID, err)
	}
	if len(existing) > 0 {
		return nil, ErrBracketAlreadyGenerated
	}

	confirmed := models.RegistrationConfirmed
	regs, err := s.registrationRepo.ListByTournament(ctx, tournament.ID, &confirmed, false)
	if err != nil {
		return nil, fmt.Errorf("list confirmed registrations for tournament %d: %w", tournament.ID, err)
	}
	if len(regs) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	var generator brackets.Generator
	switch tournament.BracketType {
	case models.BracketSingleElimination:
		generator = brackets.NewSingleEliminationGenerator()
	case models.BracketRoundRobin:
		generator = brackets.NewRoundRobinGenerator()
	default:
		return nil, fmt.Errorf("%w: unsupported bracket type %q", ErrValidationFailed, tournament.BracketType)
	}

	generated, err := generator.Generate(ctx, brackets.GenerateParams{
		Tournament:    tournament,
		Registrations: regs,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s bracket for tournament %d: %w", generator.Name(), tournament.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	matchTime := tournament.StartDate
	if time.Now().After(matchTime) {
		matchTime = time.Now().Add(15 * time.Minute)
	}

	// First pass: create one DB row per playable generated match. Byes are
	// handled by the generator feeding the advancing team into the next
	// round directly, so they produce no row.
	uidToMatch := make(map[string]*models.Match, len(generated))
	var created []*models.Match

	for _, bm := range generated {
		if bm.IsBye {
			continue
		}
		uid := bm.UID
		match := &models.Match{
			TournamentID:    tournament.ID,
			Round:           bm.Round,
			OrderInRound:    bm.OrderInRound,
			Reg1ID:          bm.Reg1ID,
			Reg2ID:          bm.Reg2ID,
			Date:            matchTime,
			Status:          models.MatchScheduled,
			BracketMatchUID: &uid,
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("create match %s: %w", bm.UID, err)
		}
		uidToMatch[bm.UID] = match
		created = append(created, match)
	}

	// Second pass: wire next_match_id and winner_to_slot.
	for uid, match := range uidToMatch {
		next, slot := findNextMatch(uid, generated, uidToMatch)
		if next == nil {
			continue
		}
		if err := s.matchRepo.UpdateNextMatchInfo(ctx, tx, match.ID, &next.ID, &slot); err != nil {
			return nil, fmt.Errorf("link match %s to its follow-up: %w", uid, err)
		}
		match.NextMatchID = &next.ID
		match.WinnerToSlot = &slot
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bracket transaction: %w", err)
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("type", string(tournament.BracketType)),
		slog.Int("matches", len(created)))
	return created, nil
}

func findNextMatch(uid string, generated []*brackets.BracketMatch, uidToMatch map[string]*models.Match) (*models.Match, int) {
	for _, candidate := range generated {
		if candidate.IsBye {
			continue
		}
		target, ok := uidToMatch[candidate.UID]
		if !ok {
			continue
		}
		if candidate.SourceMatch1UID != nil && *candidate.SourceMatch1UID == uid {
			return target, 1
		}
		if candidate.SourceMatch2UID != nil && *candidate.SourceMatch2UID == uid {
			return target, 2
		}
	}
	return nil, 0
}

// GetFullTournamentData loads registrations and matches for a tournament
// concurrently and attaches them to the given tournament value.
func (s *bracketService) GetFullTournamentData(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error) {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		confirmed := models.RegistrationConfirmed
		regs, err := s.registrationRepo.ListByTournament(gCtx, tournament.ID, &confirmed, true)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		tournament.Registrations = make([]models.Registration, 0, len(regs))
		for _, r := range regs {
			tournament.Registrations = append(tournament.Registrations, *r)
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, tournament.ID, nil, nil)
		if err != nil {
			return fmt.Errorf("list matches: %w", err)
		}
		tournament.Matches = make([]models.Match, 0, len(matches))
		for _, m := range matches {
			tournament.Matches = append(tournament.Matches, *m)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("load tournament %d data: %w", tournament.ID, err)
	}
	return tournament, nil
}
