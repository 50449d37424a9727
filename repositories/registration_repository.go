package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/draftarena/backend/models"
)

var (
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrRegistrationConflict  = errors.New("team is already registered for this tournament")
	ErrRegistrationRefBroken = errors.New("registration references missing tournament or team")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id int) (*models.Registration, error)
	FindByTeamAndTournament(ctx context.Context, teamID, tournamentID int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus, withTeams bool) ([]*models.Registration, error)
	CountByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) (int, error)
	UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error
	Delete(ctx context.Context, id int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (tournament_id, team_id, captain_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		reg.TournamentID, reg.TeamID, reg.CaptainID, reg.Status,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return ErrRegistrationConflict
			case "23503":
				return ErrRegistrationRefBroken
			}
		}
		return err
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	query := `
		SELECT id, tournament_id, team_id, captain_id, status, created_at
		FROM registrations
		WHERE id = $1`

	reg := &models.Registration{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.CaptainID, &reg.Status, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) FindByTeamAndTournament(ctx context.Context, teamID, tournamentID int) (*models.Registration, error) {
	query := `
		SELECT id, tournament_id, team_id, captain_id, status, created_at
		FROM registrations
		WHERE team_id = $1 AND tournament_id = $2`

	reg := &models.Registration{}
	err := r.db.QueryRowContext(ctx, query, teamID, tournamentID).Scan(
		&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.CaptainID, &reg.Status, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus, withTeams bool) ([]*models.Registration, error) {
	query := `
		SELECT r.id, r.tournament_id, r.team_id, r.captain_id, r.status, r.created_at`
	if withTeams {
		query += `, t.id, t.name, t.tag, t.captain_id, t.logo_key, t.created_at`
	}
	query += ` FROM registrations r`
	if withTeams {
		query += ` JOIN teams t ON r.team_id = t.id`
	}
	query += ` WHERE r.tournament_id = $1`

	args := []interface{}{tournamentID}
	if status != nil {
		query += ` AND r.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY r.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*models.Registration
	for rows.Next() {
		reg := &models.Registration{}
		if withTeams {
			team := &models.Team{}
			if err := rows.Scan(
				&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.CaptainID, &reg.Status, &reg.CreatedAt,
				&team.ID, &team.Name, &team.Tag, &team.CaptainID, &team.LogoKey, &team.CreatedAt,
			); err != nil {
				return nil, err
			}
			reg.Team = team
		} else {
			if err := rows.Scan(
				&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.CaptainID, &reg.Status, &reg.CreatedAt,
			); err != nil {
				return nil, err
			}
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *postgresRegistrationRepository) CountByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) (int, error) {
	query := `SELECT COUNT(*) FROM registrations WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
