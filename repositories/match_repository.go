package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/draftarena/backend/models"
)

var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchRefInvalid = errors.New("match references missing tournament or registration")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	UpdateScoreStatusWinner(ctx context.Context, id int, score *string, status models.MatchStatus, winnerRegID *int) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error
	UpdateRegistrations(ctx context.Context, exec SQLExecutor, matchID int, reg1ID, reg2ID *int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			tournament_id, round, order_in_round, reg1_id, reg2_id,
			score, date, status, winner_reg_id, bracket_match_uid, next_match_id, winner_to_slot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.OrderInRound, m.Reg1ID, m.Reg2ID,
		m.Score, m.Date, m.Status, m.WinnerRegID, m.BracketMatchUID, m.NextMatchID, m.WinnerToSlot,
	).Scan(&m.ID)

	return mapMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `
		SELECT id, tournament_id, round, order_in_round, reg1_id, reg2_id,
		       score, date, status, winner_reg_id, bracket_match_uid, next_match_id, winner_to_slot
		FROM matches
		WHERE id = $1`

	m := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.OrderInRound, &m.Reg1ID, &m.Reg2ID,
		&m.Score, &m.Date, &m.Status, &m.WinnerRegID, &m.BracketMatchUID, &m.NextMatchID, &m.WinnerToSlot,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	query := `
		SELECT id, tournament_id, round, order_in_round, reg1_id, reg2_id,
		       score, date, status, winner_reg_id, bracket_match_uid, next_match_id, winner_to_slot
		FROM matches
		WHERE tournament_id = $1`

	args := []interface{}{tournamentID}
	argID := 2
	if round != nil {
		query += fmt.Sprintf(" AND round = $%d", argID)
		args = append(args, *round)
		argID++
	}
	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *status)
	}
	query += ` ORDER BY round, order_in_round`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m := &models.Match{}
		if err := rows.Scan(
			&m.ID, &m.TournamentID, &m.Round, &m.OrderInRound, &m.Reg1ID, &m.Reg2ID,
			&m.Score, &m.Date, &m.Status, &m.WinnerRegID, &m.BracketMatchUID, &m.NextMatchID, &m.WinnerToSlot,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateScoreStatusWinner(ctx context.Context, id int, score *string, status models.MatchStatus, winnerRegID *int) error {
	query := `
		UPDATE matches
		SET score = $1, status = $2, winner_reg_id = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, score, status, winnerRegID, id)
	if err != nil {
		return mapMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`,
		nextMatchID, winnerToSlot, matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateRegistrations(ctx context.Context, exec SQLExecutor, matchID int, reg1ID, reg2ID *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET reg1_id = COALESCE($1, reg1_id), reg2_id = COALESCE($2, reg2_id) WHERE id = $3`,
		reg1ID, reg2ID, matchID)
	if err != nil {
		return mapMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	return err
}

func mapMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return ErrMatchRefInvalid
	}
	return err
}
