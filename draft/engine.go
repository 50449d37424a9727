package draft

import (
	"errors"

	"github.com/draftarena/backend/models"
)

var (
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrDraftComplete     = errors.New("draft session is already complete")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrWrongActionKind   = errors.New("current turn expects a different action kind")
	ErrHeroUnavailable   = errors.New("hero already picked or banned")
	ErrSideTaken         = errors.New("coin side already claimed by the other team")
	ErrSideAlreadyChosen = errors.New("team has already chosen a coin side")
	ErrUnknownTeamSlot   = errors.New("unknown team slot")
	ErrUnsupportedCmd    = errors.New("unsupported command")
)

// State is the in-memory form of one draft session, free of any I/O. The
// coordinating service loads it from the session row, runs Apply, and writes
// the result back. Cursor position is implicit: len(Actions) indexes Order.
type State struct {
	Phase models.DraftPhase
	Turn  models.TeamSlot

	Team1Present bool
	Team2Present bool

	Coin    models.DraftCoinToss
	Order   []TurnStep
	Actions []models.DraftAction
	Config  models.DraftConfig
}

type CommandType string

const (
	CmdConnect      CommandType = "Connect"
	CmdDisconnect   CommandType = "Disconnect"
	CmdChooseSide   CommandType = "ChooseSide"
	CmdSubmitAction CommandType = "SubmitAction"
)

// Command is one captain- or coordinator-initiated input. Flip carries the
// coin result determined by the caller; the engine consumes it only when the
// second side claim resolves the toss, which keeps Apply deterministic.
type Command struct {
	Type   CommandType
	Team   models.TeamSlot
	Side   models.CoinSide
	Flip   models.CoinSide
	HeroID int
	IsBan  bool
	Auto   bool
}

type EventType string

const (
	EvtPresenceChanged EventType = "PresenceChanged"
	EvtPhaseChanged    EventType = "PhaseChanged"
	EvtSideClaimed     EventType = "SideClaimed"
	EvtCoinResolved    EventType = "CoinResolved"
	EvtActionApplied   EventType = "ActionApplied"
	EvtTurnAdvanced    EventType = "TurnAdvanced"
	EvtDraftCompleted  EventType = "DraftCompleted"
)

type Event struct {
	Type    EventType
	Team    models.TeamSlot
	Present bool
	Phase   models.DraftPhase
	Side    models.CoinSide
	Result  models.CoinSide
	Winner  models.TeamSlot
	Turn    models.TeamSlot
	HeroID  int
	IsBan   bool
	Auto    bool
}

// NewState returns the initial waiting-phase state for the given config.
func NewState(cfg models.DraftConfig) State {
	return State{
		Phase:   models.PhaseWaiting,
		Turn:    models.SlotNone,
		Actions: []models.DraftAction{},
		Config:  cfg,
	}
}

// Apply runs one command against the state and returns the emitted events
// together with the successor state. On error the returned state is the
// input state unchanged; rejected commands never leave partial mutations.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdConnect, CmdDisconnect:
		return applyPresence(s, cmd)
	case CmdChooseSide:
		return applyChooseSide(s, cmd)
	case CmdSubmitAction:
		return applySubmitAction(s, cmd)
	default:
		return nil, s, ErrUnsupportedCmd
	}
}

func applyPresence(s State, cmd Command) ([]Event, State, error) {
	present := cmd.Type == CmdConnect

	next := clone(s)
	switch cmd.Team {
	case models.SlotTeam1:
		next.Team1Present = present
	case models.SlotTeam2:
		next.Team2Present = present
	default:
		return nil, s, ErrUnknownTeamSlot
	}

	events := []Event{{Type: EvtPresenceChanged, Team: cmd.Team, Present: present}}

	// Presence only gates entry into the coin toss. A disconnect never
	// regresses the phase.
	if present && next.Phase == models.PhaseWaiting && next.Team1Present && next.Team2Present {
		next.Phase = models.PhaseCoinToss
		events = append(events, Event{Type: EvtPhaseChanged, Phase: models.PhaseCoinToss})
	}
	return events, next, nil
}

func applyChooseSide(s State, cmd Command) ([]Event, State, error) {
	switch s.Phase {
	case models.PhaseCoinToss:
	case models.PhaseComplete:
		return nil, s, ErrDraftComplete
	default:
		return nil, s, ErrWrongPhase
	}

	var own, other models.CoinSide
	switch cmd.Team {
	case models.SlotTeam1:
		own, other = s.Coin.Team1Side, s.Coin.Team2Side
	case models.SlotTeam2:
		own, other = s.Coin.Team2Side, s.Coin.Team1Side
	default:
		return nil, s, ErrUnknownTeamSlot
	}

	if own != "" {
		return nil, s, ErrSideAlreadyChosen
	}
	if other == cmd.Side {
		return nil, s, ErrSideTaken
	}

	next := clone(s)
	if cmd.Team == models.SlotTeam1 {
		next.Coin.Team1Side = cmd.Side
	} else {
		next.Coin.Team2Side = cmd.Side
	}

	events := []Event{{Type: EvtSideClaimed, Team: cmd.Team, Side: cmd.Side}}

	if next.Coin.Team1Side == "" || next.Coin.Team2Side == "" {
		return events, next, nil
	}

	// Both sides held; resolve with the caller-provided flip.
	next.Coin.Result = cmd.Flip
	if next.Coin.Team1Side == cmd.Flip {
		next.Coin.Winner = models.SlotTeam1
	} else {
		next.Coin.Winner = models.SlotTeam2
	}
	next.Phase = models.PhasePickBan
	next.Order = BuildOrder(next.Config, next.Coin.Winner)
	next.Turn = next.Order[0].Team

	events = append(events,
		Event{Type: EvtCoinResolved, Result: next.Coin.Result, Winner: next.Coin.Winner},
		Event{Type: EvtPhaseChanged, Phase: models.PhasePickBan},
		Event{Type: EvtTurnAdvanced, Turn: next.Turn},
	)
	return events, next, nil
}

func applySubmitAction(s State, cmd Command) ([]Event, State, error) {
	switch s.Phase {
	case models.PhasePickBan:
	case models.PhaseComplete:
		return nil, s, ErrDraftComplete
	default:
		return nil, s, ErrWrongPhase
	}
	if len(s.Actions) >= len(s.Order) {
		return nil, s, ErrDraftComplete
	}

	step := s.Order[len(s.Actions)]
	if cmd.Team != step.Team {
		return nil, s, ErrNotYourTurn
	}
	if cmd.IsBan != step.IsBan {
		return nil, s, ErrWrongActionKind
	}
	if heroUsed(s, cmd.HeroID) {
		return nil, s, ErrHeroUnavailable
	}

	next := clone(s)
	next.Actions = append(next.Actions, models.DraftAction{
		Team:   cmd.Team,
		HeroID: cmd.HeroID,
		IsBan:  cmd.IsBan,
		Auto:   cmd.Auto,
	})

	events := []Event{{
		Type: EvtActionApplied, Team: cmd.Team,
		HeroID: cmd.HeroID, IsBan: cmd.IsBan, Auto: cmd.Auto,
	}}

	if len(next.Actions) == len(next.Order) {
		next.Phase = models.PhaseComplete
		next.Turn = models.SlotNone
		events = append(events,
			Event{Type: EvtPhaseChanged, Phase: models.PhaseComplete},
			Event{Type: EvtDraftCompleted},
		)
		return events, next, nil
	}

	next.Turn = next.Order[len(next.Actions)].Team
	events = append(events, Event{Type: EvtTurnAdvanced, Turn: next.Turn})
	return events, next, nil
}

func heroUsed(s State, heroID int) bool {
	for _, a := range s.Actions {
		if a.HeroID == heroID {
			return true
		}
	}
	return false
}

// AutoPickCandidate selects the hero the timeout path locks in: the lowest
// id from the pool that is still available. ok is false when the pool is
// exhausted.
func AutoPickCandidate(s State, pool []int) (int, bool) {
	best, ok := 0, false
	for _, id := range pool {
		if heroUsed(s, id) {
			continue
		}
		if !ok || id < best {
			best, ok = id, true
		}
	}
	return best, ok
}

func clone(s State) State {
	next := s
	next.Actions = append([]models.DraftAction(nil), s.Actions...)
	next.Order = append([]TurnStep(nil), s.Order...)
	return next
}
