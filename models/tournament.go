package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusSoon         TournamentStatus = "soon"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketRoundRobin        BracketType = "round_robin"
)

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	Game        string           `json:"game" db:"game"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	BracketType BracketType      `json:"bracket_type" db:"bracket_type"`
	RegDate     time.Time        `json:"reg_date" db:"reg_date"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`
	EndDate     time.Time        `json:"end_date" db:"end_date"`
	Status      TournamentStatus `json:"status" db:"status"`
	MaxTeams    int              `json:"max_teams" db:"max_teams"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`

	// Default draft configuration applied to sessions created for this
	// tournament unless overridden at session creation.
	DraftBansPerTeam  int    `json:"draft_bans_per_team" db:"draft_bans_per_team"`
	DraftPicksPerTeam int    `json:"draft_picks_per_team" db:"draft_picks_per_team"`
	DraftStrategy     string `json:"draft_strategy" db:"draft_strategy"`
	DraftTurnSeconds  int    `json:"draft_turn_seconds" db:"draft_turn_seconds"`
	DraftBonusSeconds int    `json:"draft_bonus_seconds" db:"draft_bonus_seconds"`

	WinnerRegistrationID *int `json:"winner_registration_id,omitempty" db:"winner_registration_id"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	Organizer     *User          `json:"organizer,omitempty" db:"-"`
	Registrations []Registration `json:"registrations,omitempty" db:"-"`
	Matches       []Match        `json:"matches,omitempty" db:"-"`
}
