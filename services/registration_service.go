package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/repositories"
)

type RegistrationService interface {
	RegisterTeam(ctx context.Context, tournamentID, currentUserID int) (*models.Registration, error)
	GetRegistrationByID(ctx context.Context, id int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error)
	ChangeStatus(ctx context.Context, registrationID, currentUserID int, status models.RegistrationStatus) (*models.Registration, error)
	Withdraw(ctx context.Context, registrationID, currentUserID int) error
}

type registrationService struct {
	repo           repositories.RegistrationRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	logger         *slog.Logger
}

func NewRegistrationService(
	repo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		repo:           repo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		logger:         logger,
	}
}

// RegisterTeam enters the current user's team into a tournament. Only the
// team captain may register, and only while registration is open.
func (s *registrationService) RegisterTeam(ctx context.Context, tournamentID, currentUserID int) (*models.Registration, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("get tournament %d: %w", tournamentID, err)
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", currentUserID, err)
	}
	if user.TeamID == nil {
		return nil, ErrUserNotInTeam
	}

	team, err := s.teamRepo.GetByID(ctx, *user.TeamID)
	if err != nil {
		return nil, fmt.Errorf("get team %d: %w", *user.TeamID, err)
	}
	if team.CaptainID != currentUserID {
		return nil, ErrCaptainActionForbidden
	}

	confirmed := models.RegistrationConfirmed
	count, err := s.repo.CountByTournament(ctx, tournamentID, &confirmed)
	if err != nil {
		return nil, fmt.Errorf("count registrations for tournament %d: %w", tournamentID, err)
	}
	if count >= tournament.MaxTeams {
		return nil, ErrTournamentFull
	}

	reg := &models.Registration{
		TournamentID: tournamentID,
		TeamID:       team.ID,
		CaptainID:    team.CaptainID,
		Status:       models.RegistrationPending,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return nil, ErrRegistrationConflict
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.logger.Info("team registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("team_id", team.ID),
		slog.Int("registration_id", reg.ID))
	return reg, nil
}

func (s *registrationService) GetRegistrationByID(ctx context.Context, id int) (*models.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration %d: %w", id, err)
	}
	return reg, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("get tournament %d: %w", tournamentID, err)
	}
	return s.repo.ListByTournament(ctx, tournamentID, status, true)
}

// ChangeStatus confirms or rejects a pending registration. Only the
// tournament organizer may do this.
func (s *registrationService) ChangeStatus(ctx context.Context, registrationID, currentUserID int, status models.RegistrationStatus) (*models.Registration, error) {
	if status != models.RegistrationConfirmed && status != models.RegistrationRejected {
		return nil, fmt.Errorf("%w: status must be confirmed or rejected", ErrValidationFailed)
	}

	reg, err := s.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, reg.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("get tournament %d: %w", reg.TournamentID, err)
	}
	if tournament.OrganizerID != currentUserID {
		return nil, ErrOrganizerOnly
	}

	if status == models.RegistrationConfirmed {
		confirmed := models.RegistrationConfirmed
		count, err := s.repo.CountByTournament(ctx, reg.TournamentID, &confirmed)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if count >= tournament.MaxTeams {
			return nil, ErrTournamentFull
		}
	}

	if err := s.repo.UpdateStatus(ctx, registrationID, status); err != nil {
		return nil, fmt.Errorf("update registration %d status: %w", registrationID, err)
	}
	reg.Status = status
	return reg, nil
}

// Withdraw removes a registration. Allowed for the registering captain
// while the tournament has not started, or for the organizer at any time
// before activation.
func (s *registrationService) Withdraw(ctx context.Context, registrationID, currentUserID int) error {
	reg, err := s.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, reg.TournamentID)
	if err != nil {
		return fmt.Errorf("get tournament %d: %w", reg.TournamentID, err)
	}
	if currentUserID != reg.CaptainID && currentUserID != tournament.OrganizerID {
		return ErrForbiddenOperation
	}
	if tournament.Status == models.StatusActive || tournament.Status == models.StatusCompleted {
		return fmt.Errorf("%w: tournament has already started", ErrForbiddenOperation)
	}

	return s.repo.Delete(ctx, registrationID)
}
