package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/draftarena/backend/models"
)

var (
	ErrDraftSessionNotFound = errors.New("draft session not found")
	ErrDraftSessionConflict = errors.New("draft session already exists for this pairing")
	ErrDraftRefInvalid      = errors.New("draft session references missing tournament or registration")
)

type DraftRepository interface {
	Create(ctx context.Context, session *models.DraftSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DraftSession, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.DraftSession, error)
	Update(ctx context.Context, session *models.DraftSession) error
}

type postgresDraftRepository struct {
	db *sql.DB
}

func NewPostgresDraftRepository(db *sql.DB) DraftRepository {
	return &postgresDraftRepository{db: db}
}

const draftColumns = `id, tournament_id, match_id,
	team1_registration_id, team2_registration_id, team1_captain_id, team2_captain_id,
	phase, status, current_turn, coin_toss, config, actions,
	turn_deadline, bonus_active, created_at, updated_at`

func (r *postgresDraftRepository) Create(ctx context.Context, s *models.DraftSession) error {
	coin, config, actions, err := marshalDraftJSON(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO draft_sessions (
			id, tournament_id, match_id,
			team1_registration_id, team2_registration_id, team1_captain_id, team2_captain_id,
			phase, status, current_turn, coin_toss, config, actions,
			turn_deadline, bonus_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		s.ID, s.TournamentID, s.MatchID,
		s.Team1RegID, s.Team2RegID, s.Team1CaptainID, s.Team2CaptainID,
		s.Phase, s.Status, s.CurrentTurn, coin, config, actions,
		s.TurnDeadline, s.BonusActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	return mapDraftError(err)
}

func (r *postgresDraftRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DraftSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM draft_sessions WHERE id = $1`, draftColumns)

	s, err := scanDraftSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresDraftRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.DraftSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM draft_sessions WHERE tournament_id = $1 ORDER BY created_at`, draftColumns)

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.DraftSession
	for rows.Next() {
		s, err := scanDraftSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *postgresDraftRepository) Update(ctx context.Context, s *models.DraftSession) error {
	coin, config, actions, err := marshalDraftJSON(s)
	if err != nil {
		return err
	}

	query := `
		UPDATE draft_sessions
		SET phase = $1, status = $2, current_turn = $3,
		    coin_toss = $4, config = $5, actions = $6,
		    turn_deadline = $7, bonus_active = $8, updated_at = NOW()
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		s.Phase, s.Status, s.CurrentTurn,
		coin, config, actions,
		s.TurnDeadline, s.BonusActive, s.ID)
	if err != nil {
		return mapDraftError(err)
	}
	return checkAffectedRows(result, ErrDraftSessionNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraftSession(row rowScanner) (*models.DraftSession, error) {
	s := &models.DraftSession{}
	var coin, config, actions []byte

	err := row.Scan(
		&s.ID, &s.TournamentID, &s.MatchID,
		&s.Team1RegID, &s.Team2RegID, &s.Team1CaptainID, &s.Team2CaptainID,
		&s.Phase, &s.Status, &s.CurrentTurn, &coin, &config, &actions,
		&s.TurnDeadline, &s.BonusActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(coin, &s.Coin); err != nil {
		return nil, fmt.Errorf("unmarshal coin_toss: %w", err)
	}
	if err := json.Unmarshal(config, &s.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := json.Unmarshal(actions, &s.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return s, nil
}

func marshalDraftJSON(s *models.DraftSession) (coin, config, actions []byte, err error) {
	if coin, err = json.Marshal(s.Coin); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal coin_toss: %w", err)
	}
	if config, err = json.Marshal(s.Config); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal config: %w", err)
	}
	if s.Actions == nil {
		actions = []byte("[]")
		return coin, config, actions, nil
	}
	if actions, err = json.Marshal(s.Actions); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal actions: %w", err)
	}
	return coin, config, actions, nil
}

func mapDraftError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrDraftSessionConflict
		case "23503":
			return ErrDraftRefInvalid
		}
	}
	return err
}
