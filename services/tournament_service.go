package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/realtime"
	"github.com/draftarena/backend/repositories"
	"github.com/draftarena/backend/storage"
)

type CreateTournamentInput struct {
	Name        string             `json:"name"`
	Description *string            `json:"description,omitempty"`
	Game        string             `json:"game"`
	BracketType models.BracketType `json:"bracket_type"`
	RegDate     time.Time          `json:"reg_date"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     time.Time          `json:"end_date"`
	MaxTeams    int                `json:"max_teams"`

	DraftBansPerTeam  *int    `json:"draft_bans_per_team,omitempty"`
	DraftPicksPerTeam *int    `json:"draft_picks_per_team,omitempty"`
	DraftStrategy     *string `json:"draft_strategy,omitempty"`
	DraftTurnSeconds  *int    `json:"draft_turn_seconds,omitempty"`
	DraftBonusSeconds *int    `json:"draft_bonus_seconds,omitempty"`
}

type UpdateTournamentInput struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	RegDate     *time.Time `json:"reg_date,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	MaxTeams    *int       `json:"max_teams,omitempty"`
}

// Draft configuration defaults applied when a tournament does not override
// them at creation time.
const (
	defaultDraftBansPerTeam  = 1
	defaultDraftPicksPerTeam = 5
	defaultDraftTurnSeconds  = 30
	defaultDraftBonusSeconds = 10
)

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateTournament(ctx context.Context, id, currentUserID int, input UpdateTournamentInput) (*models.Tournament, error)
	ChangeStatus(ctx context.Context, id, currentUserID int, status models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id, currentUserID int) error
	UploadLogo(ctx context.Context, id, currentUserID int, contentType string, file io.Reader) (*models.Tournament, error)
	AutoUpdateStatuses(ctx context.Context) (int, error)
}

type tournamentService struct {
	repo           repositories.TournamentRepository
	userRepo       repositories.UserRepository
	bracketService BracketService
	uploader       storage.FileUploader
	hub            *realtime.Hub
	logger         *slog.Logger
}

func NewTournamentService(
	repo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	hub *realtime.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		repo:           repo,
		userRepo:       userRepo,
		bracketService: bracketService,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	organizer, err := s.userRepo.GetByID(ctx, organizerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get organizer %d: %w", organizerID, err)
	}
	if organizer.Role != models.RoleOrganizer && organizer.Role != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}

	t := &models.Tournament{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Game:        strings.TrimSpace(input.Game),
		OrganizerID: organizerID,
		BracketType: input.BracketType,
		RegDate:     input.RegDate,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Status:      models.StatusSoon,
		MaxTeams:    input.MaxTeams,

		DraftBansPerTeam:  defaultDraftBansPerTeam,
		DraftPicksPerTeam: defaultDraftPicksPerTeam,
		DraftStrategy:     string(models.StrategyAlternating),
		DraftTurnSeconds:  defaultDraftTurnSeconds,
		DraftBonusSeconds: defaultDraftBonusSeconds,
	}
	if input.DraftBansPerTeam != nil {
		t.DraftBansPerTeam = *input.DraftBansPerTeam
	}
	if input.DraftPicksPerTeam != nil {
		t.DraftPicksPerTeam = *input.DraftPicksPerTeam
	}
	if input.DraftStrategy != nil {
		t.DraftStrategy = *input.DraftStrategy
	}
	if input.DraftTurnSeconds != nil {
		t.DraftTurnSeconds = *input.DraftTurnSeconds
	}
	if input.DraftBonusSeconds != nil {
		t.DraftBonusSeconds = *input.DraftBonusSeconds
	}

	if err := validateTournament(t); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("create tournament: %w", err)
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID),
		slog.Int("organizer_id", organizerID),
		slog.String("bracket_type", string(t.BracketType)))
	return t, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("get tournament %d: %w", id, err)
	}
	s.attachLogoURL(t)
	return s.bracketService.GetFullTournamentData(ctx, t)
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	for i := range list {
		s.attachLogoURL(&list[i])
	}
	return list, nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id, currentUserID int, input UpdateTournamentInput) (*models.Tournament, error) {
	t, err := s.requireOrganizer(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusSoon && t.Status != models.StatusRegistration {
		return nil, fmt.Errorf("%w: tournament can only be edited before it starts", ErrForbiddenOperation)
	}

	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		t.Description = input.Description
	}
	if input.RegDate != nil {
		t.RegDate = *input.RegDate
	}
	if input.StartDate != nil {
		t.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		t.EndDate = *input.EndDate
	}
	if input.MaxTeams != nil {
		t.MaxTeams = *input.MaxTeams
	}

	if err := validateTournament(t); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("update tournament %d: %w", id, err)
	}
	s.attachLogoURL(t)
	return t, nil
}

func (s *tournamentService) ChangeStatus(ctx context.Context, id, currentUserID int, status models.TournamentStatus) (*models.Tournament, error) {
	t, err := s.requireOrganizer(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if !isValidStatus(status) {
		return nil, ErrTournamentInvalidStatus
	}
	if !isValidTransition(t.Status, status) {
		return nil, ErrTournamentInvalidStatusTransition
	}

	if status == models.StatusActive {
		if _, err := s.bracketService.GenerateAndSaveBracket(ctx, t); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, fmt.Errorf("update status of tournament %d: %w", id, err)
	}
	t.Status = status

	s.broadcastStatus(t)
	return s.GetTournamentByID(ctx, id)
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id, currentUserID int) error {
	t, err := s.requireOrganizer(ctx, id, currentUserID)
	if err != nil {
		return err
	}
	if t.Status == models.StatusActive {
		return fmt.Errorf("%w: active tournaments cannot be deleted, cancel them first", ErrForbiddenOperation)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentInUse) {
			return fmt.Errorf("%w: tournament has registrations or matches", ErrForbiddenOperation)
		}
		return fmt.Errorf("delete tournament %d: %w", id, err)
	}

	if t.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *t.LogoKey); err != nil {
			s.logger.Warn("failed to delete tournament logo", slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id, currentUserID int, contentType string, file io.Reader) (*models.Tournament, error) {
	t, err := s.requireOrganizer(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrForbiddenOperation)
	}

	ext := extensionForContentType(contentType)
	if ext == "" {
		return nil, fmt.Errorf("%w: unsupported logo content type %q", ErrValidationFailed, contentType)
	}

	key := fmt.Sprintf("tournaments/%d/logo%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("upload tournament logo: %w", err)
	}

	oldKey := t.LogoKey
	if err := s.repo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("store logo key: %w", err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous logo", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	t.LogoKey = &result.Key
	s.attachLogoURL(t)
	return t, nil
}

// AutoUpdateStatuses advances tournaments whose scheduled dates have
// passed. It is called periodically by the background scheduler. Returns
// the number of tournaments updated.
func (s *tournamentService) AutoUpdateStatuses(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := s.repo.ListDueForStatusUpdate(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list tournaments due for status update: %w", err)
	}

	updated := 0
	for _, t := range due {
		var next models.TournamentStatus
		switch t.Status {
		case models.StatusSoon:
			next = models.StatusRegistration
		case models.StatusRegistration:
			next = models.StatusActive
		case models.StatusActive:
			next = models.StatusCompleted
		default:
			continue
		}

		if next == models.StatusActive {
			if _, err := s.bracketService.GenerateAndSaveBracket(ctx, t); err != nil {
				// Without enough teams the tournament cannot start.
				if errors.Is(err, ErrNotEnoughParticipants) {
					s.logger.Warn("canceling tournament with too few registrations", slog.Int("tournament_id", t.ID))
					next = models.StatusCanceled
				} else if !errors.Is(err, ErrBracketAlreadyGenerated) {
					s.logger.Error("bracket generation failed during auto activation",
						slog.Int("tournament_id", t.ID), slog.Any("error", err))
					continue
				}
			}
		}

		if err := s.repo.UpdateStatus(ctx, nil, t.ID, next); err != nil {
			s.logger.Error("auto status update failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		t.Status = next
		s.broadcastStatus(t)
		updated++
	}
	return updated, nil
}

func (s *tournamentService) requireOrganizer(ctx context.Context, tournamentID, currentUserID int) (*models.Tournament, error) {
	t, err := s.repo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("get tournament %d: %w", tournamentID, err)
	}
	if t.OrganizerID != currentUserID {
		user, err := s.userRepo.GetByID(ctx, currentUserID)
		if err != nil || user.Role != models.RoleAdmin {
			return nil, ErrOrganizerOnly
		}
	}
	return t, nil
}

func (s *tournamentService) attachLogoURL(t *models.Tournament) {
	if t.LogoKey == nil || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*t.LogoKey); url != "" {
		t.LogoURL = &url
	}
}

func (s *tournamentService) broadcastStatus(t *models.Tournament) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(realtime.TournamentRoom(t.ID), realtime.Message{
		Type: "tournament_status_changed",
		Payload: map[string]interface{}{
			"tournament_id": t.ID,
			"status":        t.Status,
		},
	})
}

func validateTournament(t *models.Tournament) error {
	if t.Name == "" {
		return fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if t.Game == "" {
		return fmt.Errorf("%w: game is required", ErrValidationFailed)
	}
	if t.BracketType != models.BracketSingleElimination && t.BracketType != models.BracketRoundRobin {
		return fmt.Errorf("%w: unknown bracket type %q", ErrValidationFailed, t.BracketType)
	}
	if t.MaxTeams < 2 {
		return ErrTournamentInvalidCapacity
	}
	if !t.RegDate.Before(t.StartDate) {
		return ErrTournamentInvalidRegDate
	}
	if !t.StartDate.Before(t.EndDate) {
		return ErrTournamentInvalidDateRange
	}
	if t.DraftBansPerTeam < 0 || t.DraftPicksPerTeam < 1 {
		return ErrDraftConfigInvalid
	}
	switch models.DraftStrategy(t.DraftStrategy) {
	case models.StrategyAlternating, models.StrategySnake:
	default:
		return ErrDraftConfigInvalid
	}
	if t.DraftTurnSeconds < 5 || t.DraftBonusSeconds < 0 {
		return ErrDraftConfigInvalid
	}
	return nil
}

func isValidStatus(status models.TournamentStatus) bool {
	switch status {
	case models.StatusSoon, models.StatusRegistration, models.StatusActive,
		models.StatusCompleted, models.StatusCanceled:
		return true
	}
	return false
}

// isValidTransition enforces the forward-only tournament lifecycle.
// Cancellation is allowed from any non-terminal state.
func isValidTransition(from, to models.TournamentStatus) bool {
	if from == to {
		return false
	}
	if to == models.StatusCanceled {
		return from != models.StatusCompleted
	}
	switch from {
	case models.StatusSoon:
		return to == models.StatusRegistration
	case models.StatusRegistration:
		return to == models.StatusActive
	case models.StatusActive:
		return to == models.StatusCompleted
	}
	return false
}
