package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/repositories"
	"github.com/draftarena/backend/storage"
)

const (
	inviteTokenLength = 16
	inviteDuration    = 7 * 24 * time.Hour
)

type CreateTeamInput struct {
	Name string  `json:"name"`
	Tag  *string `json:"tag,omitempty"`
}

type UpdateTeamInput struct {
	Name *string `json:"name,omitempty"`
	Tag  *string `json:"tag,omitempty"`
}

type TeamService interface {
	CreateTeam(ctx context.Context, creatorID int, input CreateTeamInput) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	UpdateTeam(ctx context.Context, teamID, currentUserID int, input UpdateTeamInput) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID, currentUserID int) error
	UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, file io.Reader) (*models.Team, error)
	CreateInvite(ctx context.Context, teamID, currentUserID int) (*models.Invite, error)
	JoinByInvite(ctx context.Context, token string, currentUserID int) (*models.Team, error)
	RemoveMember(ctx context.Context, teamID, memberID, currentUserID int) error
	LeaveTeam(ctx context.Context, currentUserID int) error
	TransferCaptain(ctx context.Context, teamID, newCaptainID, currentUserID int) (*models.Team, error)
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	userRepo   repositories.UserRepository
	inviteRepo repositories.InviteRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	inviteRepo repositories.InviteRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		inviteRepo: inviteRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, creatorID int, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get creator %d: %w", creatorID, err)
	}
	if creator.TeamID != nil {
		return nil, ErrUserAlreadyInTeam
	}

	team := &models.Team{
		Name:      name,
		Tag:       input.Tag,
		CaptainID: creatorID,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("create team: %w", err)
	}

	if err := s.userRepo.UpdateTeamID(ctx, creatorID, &team.ID); err != nil {
		return nil, fmt.Errorf("attach creator to team %d: %w", team.ID, err)
	}

	s.logger.Info("team created", slog.Int("team_id", team.ID), slog.Int("captain_id", creatorID))
	return s.hydrate(ctx, team)
}

func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team %d: %w", id, err)
	}
	return s.hydrate(ctx, team)
}

func (s *teamService) UpdateTeam(ctx context.Context, teamID, currentUserID int, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.requireCaptain(ctx, teamID, currentUserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTeamNameRequired
		}
		team.Name = name
	}
	if input.Tag != nil {
		team.Tag = input.Tag
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("update team %d: %w", teamID, err)
	}
	return s.hydrate(ctx, team)
}

func (s *teamService) DeleteTeam(ctx context.Context, teamID, currentUserID int) error {
	team, err := s.requireCaptain(ctx, teamID, currentUserID)
	if err != nil {
		return err
	}

	members, err := s.userRepo.ListByTeamID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("list members of team %d: %w", teamID, err)
	}
	for _, m := range members {
		if err := s.userRepo.UpdateTeamID(ctx, m.ID, nil); err != nil {
			return fmt.Errorf("detach member %d: %w", m.ID, err)
		}
	}
	if err := s.inviteRepo.DeleteByTeamID(ctx, teamID); err != nil {
		return fmt.Errorf("delete invites of team %d: %w", teamID, err)
	}

	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamInUse) {
			return fmt.Errorf("%w: team has tournament registrations", ErrForbiddenOperation)
		}
		return fmt.Errorf("delete team %d: %w", teamID, err)
	}

	if team.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.Warn("failed to delete team logo", slog.Int("team_id", teamID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, file io.Reader) (*models.Team, error) {
	team, err := s.requireCaptain(ctx, teamID, currentUserID)
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

	key := fmt.Sprintf("teams/%d/logo%s", teamID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("upload team logo: %w", err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &result.Key); err != nil {
		return nil, fmt.Errorf("store logo key: %w", err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous logo", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	team.LogoKey = &result.Key
	return s.hydrate(ctx, team)
}

func (s *teamService) CreateInvite(ctx context.Context, teamID, currentUserID int) (*models.Invite, error) {
	if _, err := s.requireCaptain(ctx, teamID, currentUserID); err != nil {
		return nil, err
	}

	var invite *models.Invite
	// Retry on the unlikely token collision.
	for attempt := 0; attempt < 3; attempt++ {
		token, err := generateSecureToken(inviteTokenLength)
		if err != nil {
			return nil, fmt.Errorf("generate invite token: %w", err)
		}
		invite = &models.Invite{
			TeamID:    teamID,
			Token:     token,
			ExpiresAt: time.Now().Add(inviteDuration),
		}
		err = s.inviteRepo.Create(ctx, invite)
		if err == nil {
			return invite, nil
		}
		if !errors.Is(err, repositories.ErrInviteTokenConflict) {
			return nil, fmt.Errorf("create invite: %w", err)
		}
	}
	return nil, errors.New("failed to generate a unique invite token")
}

func (s *teamService) JoinByInvite(ctx context.Context, token string, currentUserID int) (*models.Team, error) {
	invite, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}
	if time.Now().After(invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}

	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", currentUserID, err)
	}
	if user.TeamID != nil {
		return nil, ErrUserAlreadyInTeam
	}

	if err := s.userRepo.UpdateTeamID(ctx, currentUserID, &invite.TeamID); err != nil {
		return nil, fmt.Errorf("join team %d: %w", invite.TeamID, err)
	}

	s.logger.Info("user joined team", slog.Int("user_id", currentUserID), slog.Int("team_id", invite.TeamID))
	return s.GetTeamByID(ctx, invite.TeamID)
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, memberID, currentUserID int) error {
	team, err := s.requireCaptain(ctx, teamID, currentUserID)
	if err != nil {
		return err
	}
	if memberID == team.CaptainID {
		return ErrCannotRemoveCaptain
	}

	member, err := s.userRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get member %d: %w", memberID, err)
	}
	if member.TeamID == nil || *member.TeamID != teamID {
		return ErrUserNotInTeam
	}

	return s.userRepo.UpdateTeamID(ctx, memberID, nil)
}

func (s *teamService) LeaveTeam(ctx context.Context, currentUserID int) error {
	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user %d: %w", currentUserID, err)
	}
	if user.TeamID == nil {
		return ErrUserNotInTeam
	}

	team, err := s.teamRepo.GetByID(ctx, *user.TeamID)
	if err != nil {
		return fmt.Errorf("get team %d: %w", *user.TeamID, err)
	}
	if team.CaptainID == currentUserID {
		// The captain must transfer the role or delete the team instead.
		return ErrCannotRemoveCaptain
	}

	return s.userRepo.UpdateTeamID(ctx, currentUserID, nil)
}

func (s *teamService) TransferCaptain(ctx context.Context, teamID, newCaptainID, currentUserID int) (*models.Team, error) {
	team, err := s.requireCaptain(ctx, teamID, currentUserID)
	if err != nil {
		return nil, err
	}

	newCaptain, err := s.userRepo.GetByID(ctx, newCaptainID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", newCaptainID, err)
	}
	if newCaptain.TeamID == nil || *newCaptain.TeamID != teamID {
		return nil, ErrUserNotInTeam
	}

	team.CaptainID = newCaptainID
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("transfer captain of team %d: %w", teamID, err)
	}

	s.logger.Info("team captain transferred",
		slog.Int("team_id", teamID),
		slog.Int("from", currentUserID),
		slog.Int("to", newCaptainID))
	return s.hydrate(ctx, team)
}

func (s *teamService) requireCaptain(ctx context.Context, teamID, currentUserID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team %d: %w", teamID, err)
	}
	if team.CaptainID != currentUserID {
		return nil, ErrCaptainActionForbidden
	}
	return team, nil
}

func (s *teamService) hydrate(ctx context.Context, team *models.Team) (*models.Team, error) {
	members, err := s.userRepo.ListByTeamID(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list members of team %d: %w", team.ID, err)
	}
	team.Members = members
	if team.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*team.LogoKey)
		if url != "" {
			team.LogoURL = &url
		}
	}
	return team, nil
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
