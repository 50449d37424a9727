package models

import "time"

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCanceled   MatchStatus = "canceled"
)

type Match struct {
	ID              int         `json:"id" db:"id"`
	TournamentID    int         `json:"tournament_id" db:"tournament_id"`
	Round           int         `json:"round" db:"round"`
	OrderInRound    int         `json:"order_in_round" db:"order_in_round"`
	Reg1ID          *int        `json:"reg1_id,omitempty" db:"reg1_id"`
	Reg2ID          *int        `json:"reg2_id,omitempty" db:"reg2_id"`
	Score           *string     `json:"score,omitempty" db:"score"`
	Date            time.Time   `json:"date" db:"date"`
	Status          MatchStatus `json:"status" db:"status"`
	WinnerRegID     *int        `json:"winner_reg_id,omitempty" db:"winner_reg_id"`
	BracketMatchUID *string     `json:"bracket_match_uid,omitempty" db:"bracket_match_uid"`
	NextMatchID     *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot    *int        `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
}
