package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPhase mirrors the draft_phase ENUM in the database. Transitions are
// strictly forward: waiting -> coin_toss -> pick_ban -> complete.
type DraftPhase string

const (
	PhaseWaiting  DraftPhase = "waiting"
	PhaseCoinToss DraftPhase = "coin_toss"
	PhasePickBan  DraftPhase = "pick_ban"
	PhaseComplete DraftPhase = "complete"
)

type DraftStatus string

const (
	DraftWaiting    DraftStatus = "waiting"
	DraftInProgress DraftStatus = "in_progress"
	DraftCompleted  DraftStatus = "completed"
)

// TeamSlot identifies one of the two sides of a draft session.
type TeamSlot string

const (
	SlotTeam1 TeamSlot = "team1"
	SlotTeam2 TeamSlot = "team2"
	SlotNone  TeamSlot = "none"
)

type CoinSide string

const (
	SideHeads CoinSide = "heads"
	SideTails CoinSide = "tails"
)

// DraftStrategy selects how picks are ordered after the alternating bans.
type DraftStrategy string

const (
	StrategyAlternating DraftStrategy = "alternating"
	StrategySnake       DraftStrategy = "snake"
)

// DraftConfig sizes and paces one pick/ban negotiation.
type DraftConfig struct {
	BansPerTeam  int           `json:"bans_per_team"`
	PicksPerTeam int           `json:"picks_per_team"`
	Strategy     DraftStrategy `json:"strategy"`
	TurnSeconds  int           `json:"turn_seconds"`
	BonusSeconds int           `json:"bonus_seconds"`
}

// DraftAction is one applied pick or ban, in arrival order. Auto marks
// selections made by the bonus-time timeout rather than a captain.
type DraftAction struct {
	Team   TeamSlot `json:"team"`
	HeroID int      `json:"hero_id"`
	IsBan  bool     `json:"is_ban"`
	Auto   bool     `json:"auto,omitempty"`
}

// DraftCoinToss holds the coin-toss sub-state. Sides are empty until
// claimed; Result and Winner are set once both sides are held.
type DraftCoinToss struct {
	Team1Side CoinSide `json:"team1_side,omitempty"`
	Team2Side CoinSide `json:"team2_side,omitempty"`
	Result    CoinSide `json:"result,omitempty"`
	Winner    TeamSlot `json:"winner,omitempty"`
}

// DraftSession is the single authoritative record for one pick/ban
// negotiation between two registered teams.
type DraftSession struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	MatchID      *int      `json:"match_id,omitempty" db:"match_id"`

	Team1RegID     int `json:"team1_registration_id" db:"team1_registration_id"`
	Team2RegID     int `json:"team2_registration_id" db:"team2_registration_id"`
	Team1CaptainID int `json:"team1_captain_id" db:"team1_captain_id"`
	Team2CaptainID int `json:"team2_captain_id" db:"team2_captain_id"`

	Phase       DraftPhase  `json:"phase" db:"phase"`
	Status      DraftStatus `json:"status" db:"status"`
	CurrentTurn TeamSlot    `json:"current_turn" db:"current_turn"`

	Coin    DraftCoinToss `json:"coin_toss"`
	Config  DraftConfig   `json:"config"`
	Actions []DraftAction `json:"actions"`

	TurnDeadline *time.Time `json:"turn_deadline,omitempty" db:"turn_deadline"`
	BonusActive  bool       `json:"bonus_active" db:"bonus_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CaptainSlot reports which side of the session the given user controls,
// or SlotNone for spectators.
func (s *DraftSession) CaptainSlot(userID int) TeamSlot {
	switch userID {
	case s.Team1CaptainID:
		return SlotTeam1
	case s.Team2CaptainID:
		return SlotTeam2
	default:
		return SlotNone
	}
}
