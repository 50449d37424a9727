package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftarena/backend/draft"
	"github.com/draftarena/backend/heroes"
	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/realtime"
	"github.com/draftarena/backend/repositories"
)

type CreateDraftInput struct {
	Team1RegID int  `json:"team1_registration_id"`
	Team2RegID int  `json:"team2_registration_id"`
	MatchID    *int `json:"match_id,omitempty"`

	// Optional overrides of the tournament's draft defaults.
	BansPerTeam  *int                  `json:"bans_per_team,omitempty"`
	PicksPerTeam *int                  `json:"picks_per_team,omitempty"`
	Strategy     *models.DraftStrategy `json:"strategy,omitempty"`
	TurnSeconds  *int                  `json:"turn_seconds,omitempty"`
	BonusSeconds *int                  `json:"bonus_seconds,omitempty"`
}

type DraftService interface {
	CreateSession(ctx context.Context, tournamentID, currentUserID int, input CreateDraftInput) (*models.DraftSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.DraftSession, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.DraftSession, error)

	Connect(ctx context.Context, sessionID uuid.UUID, userID int) (*models.DraftSession, error)
	Disconnect(ctx context.Context, sessionID uuid.UUID, userID int)
	ChooseSide(ctx context.Context, sessionID uuid.UUID, userID int, side models.CoinSide) (*models.DraftSession, error)
	SubmitAction(ctx context.Context, sessionID uuid.UUID, userID int, heroID int, isBan *bool) (*models.DraftSession, error)
}

// sessionRuntime carries the volatile per-session state that never touches
// the database: captain presence and the running turn timer. All command
// handling for a session happens under its mutex, which serializes
// same-tick coin claims and races between captains and the timeout path.
type sessionRuntime struct {
	mu sync.Mutex

	team1Present bool
	team2Present bool

	timer *time.Timer
}

type draftService struct {
	repo             repositories.DraftRepository
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	catalog          heroes.Catalog
	hub              *realtime.Hub
	logger           *slog.Logger

	mu       sync.Mutex
	runtimes map[uuid.UUID]*sessionRuntime
}

func NewDraftService(
	repo repositories.DraftRepository,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	catalog heroes.Catalog,
	hub *realtime.Hub,
	logger *slog.Logger,
) DraftService {
	return &draftService{
		repo:             repo,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		catalog:          catalog,
		hub:              hub,
		logger:           logger,
		runtimes:         make(map[uuid.UUID]*sessionRuntime),
	}
}

func (s *draftService) CreateSession(ctx context.Context, tournamentID, currentUserID int, input CreateDraftInput) (*models.DraftSession, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("get tournament %d: %w", tournamentID, err)
	}
	if tournament.OrganizerID != currentUserID {
		return nil, ErrOrganizerOnly
	}
	if tournament.Status != models.StatusActive {
		return nil, ErrTournamentNotActive
	}
	if input.Team1RegID == input.Team2RegID {
		return nil, fmt.Errorf("%w: a team cannot draft against itself", ErrValidationFailed)
	}

	reg1, err := s.confirmedRegistration(ctx, tournamentID, input.Team1RegID)
	if err != nil {
		return nil, err
	}
	reg2, err := s.confirmedRegistration(ctx, tournamentID, input.Team2RegID)
	if err != nil {
		return nil, err
	}

	cfg := models.DraftConfig{
		BansPerTeam:  tournament.DraftBansPerTeam,
		PicksPerTeam: tournament.DraftPicksPerTeam,
		Strategy:     models.DraftStrategy(tournament.DraftStrategy),
		TurnSeconds:  tournament.DraftTurnSeconds,
		BonusSeconds: tournament.DraftBonusSeconds,
	}
	if input.BansPerTeam != nil {
		cfg.BansPerTeam = *input.BansPerTeam
	}
	if input.PicksPerTeam != nil {
		cfg.PicksPerTeam = *input.PicksPerTeam
	}
	if input.Strategy != nil {
		cfg.Strategy = *input.Strategy
	}
	if input.TurnSeconds != nil {
		cfg.TurnSeconds = *input.TurnSeconds
	}
	if input.BonusSeconds != nil {
		cfg.BonusSeconds = *input.BonusSeconds
	}
	if err := validateDraftConfig(cfg); err != nil {
		return nil, err
	}

	// The pool must be large enough to finish the draft.
	pool, err := s.catalog.List(ctx)
	if err != nil {
		return nil, ErrHeroPoolUnavailable
	}
	needed := 2 * (cfg.BansPerTeam + cfg.PicksPerTeam)
	if len(pool) < needed {
		return nil, fmt.Errorf("%w: hero pool has %d heroes, draft needs %d", ErrDraftConfigInvalid, len(pool), needed)
	}

	session := &models.DraftSession{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		MatchID:      input.MatchID,

		Team1RegID:     reg1.ID,
		Team2RegID:     reg2.ID,
		Team1CaptainID: reg1.CaptainID,
		Team2CaptainID: reg2.CaptainID,

		Phase:       models.PhaseWaiting,
		Status:      models.DraftWaiting,
		CurrentTurn: models.SlotNone,
		Config:      cfg,
		Actions:     []models.DraftAction{},
	}

	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repositories.ErrDraftSessionConflict) {
			return nil, ErrDraftAlreadyExists
		}
		return nil, fmt.Errorf("create draft session: %w", err)
	}

	s.logger.Info("draft session created",
		slog.String("session_id", session.ID.String()),
		slog.Int("tournament_id", tournamentID),
		slog.Int("team1_reg", reg1.ID),
		slog.Int("team2_reg", reg2.ID))
	return session, nil
}

func (s *draftService) GetSession(ctx context.Context, id uuid.UUID) (*models.DraftSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrDraftSessionNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("get draft session %s: %w", id, err)
	}
	return session, nil
}

func (s *draftService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.DraftSession, error) {
	return s.repo.ListByTournament(ctx, tournamentID)
}

func (s *draftService) Connect(ctx context.Context, sessionID uuid.UUID, userID int) (*models.DraftSession, error) {
	return s.applyCaptainCommand(ctx, sessionID, userID, func(slot models.TeamSlot, state draft.State) draft.Command {
		return draft.Command{Type: draft.CmdConnect, Team: slot}
	})
}

// Disconnect records a captain leaving. In the waiting phase this regresses
// the presence gate; once the pick/ban phase has started the draft keeps
// running and the timers stand in for the absent captain.
func (s *draftService) Disconnect(ctx context.Context, sessionID uuid.UUID, userID int) {
	_, err := s.applyCaptainCommand(ctx, sessionID, userID, func(slot models.TeamSlot, state draft.State) draft.Command {
		return draft.Command{Type: draft.CmdDisconnect, Team: slot}
	})
	if err != nil && !errors.Is(err, ErrNotSessionCaptain) && !errors.Is(err, ErrDraftNotFound) {
		s.logger.Warn("disconnect handling failed",
			slog.String("session_id", sessionID.String()),
			slog.Any("error", err))
	}
}

func (s *draftService) ChooseSide(ctx context.Context, sessionID uuid.UUID, userID int, side models.CoinSide) (*models.DraftSession, error) {
	if side != models.SideHeads && side != models.SideTails {
		return nil, fmt.Errorf("%w: side must be heads or tails", ErrValidationFailed)
	}
	return s.applyCaptainCommand(ctx, sessionID, userID, func(slot models.TeamSlot, state draft.State) draft.Command {
		return draft.Command{Type: draft.CmdChooseSide, Team: slot, Side: side, Flip: flipCoin()}
	})
}

func (s *draftService) SubmitAction(ctx context.Context, sessionID uuid.UUID, userID int, heroID int, isBan *bool) (*models.DraftSession, error) {
	pool, err := s.heroPool(ctx)
	if err != nil {
		return nil, err
	}
	if !containsHero(pool, heroID) {
		return nil, fmt.Errorf("%w: hero %d is not in the catalog", ErrValidationFailed, heroID)
	}

	return s.applyCaptainCommand(ctx, sessionID, userID, func(slot models.TeamSlot, state draft.State) draft.Command {
		cmd := draft.Command{Type: draft.CmdSubmitAction, Team: slot, HeroID: heroID}
		if isBan != nil {
			// The caller declared a kind; the engine rejects it if the
			// current turn expects the other one.
			cmd.IsBan = *isBan
		} else if len(state.Actions) < len(state.Order) {
			// Kind follows the turn order, the captain only names the hero.
			cmd.IsBan = state.Order[len(state.Actions)].IsBan
		}
		return cmd
	})
}

// applyCaptainCommand is the single entry point for captain input. It locks
// the session runtime, replays the stored session into an engine state,
// applies the command, persists the successor state, and fans the events
// out to the draft room.
//
// The in-memory timer is the authority on expiry: a command that takes the
// lock after the stored deadline but before the timeout callback runs is
// still applied, and the late callback then finds a new action count and
// stands down.
func (s *draftService) applyCaptainCommand(
	ctx context.Context,
	sessionID uuid.UUID,
	userID int,
	build func(slot models.TeamSlot, state draft.State) draft.Command,
) (*models.DraftSession, error) {
	rt := s.runtime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	slot := session.CaptainSlot(userID)
	if slot == models.SlotNone {
		return nil, ErrNotSessionCaptain
	}

	state := s.toEngineState(session, rt)
	cmd := build(slot, state)

	events, next, err := draft.Apply(state, cmd)
	if err != nil {
		return nil, mapEngineError(err)
	}

	if err := s.commit(ctx, session, rt, next, events); err != nil {
		return nil, err
	}
	return session, nil
}

// commit writes the successor state back to the session row, manages the
// turn timer, and broadcasts the events. Callers hold the runtime mutex.
func (s *draftService) commit(ctx context.Context, session *models.DraftSession, rt *sessionRuntime, next draft.State, events []draft.Event) error {
	rt.team1Present = next.Team1Present
	rt.team2Present = next.Team2Present

	session.Phase = next.Phase
	session.CurrentTurn = next.Turn
	session.Coin = next.Coin
	session.Actions = next.Actions

	switch next.Phase {
	case models.PhaseWaiting:
		session.Status = models.DraftWaiting
	case models.PhaseComplete:
		session.Status = models.DraftCompleted
	default:
		session.Status = models.DraftInProgress
	}

	turnAdvanced := false
	for _, e := range events {
		if e.Type == draft.EvtTurnAdvanced {
			turnAdvanced = true
		}
	}

	if turnAdvanced {
		deadline := time.Now().Add(time.Duration(next.Config.TurnSeconds) * time.Second)
		session.TurnDeadline = &deadline
		session.BonusActive = false
	}
	if next.Phase == models.PhaseComplete {
		session.TurnDeadline = nil
		session.BonusActive = false
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return fmt.Errorf("persist draft session %s: %w", session.ID, err)
	}

	if turnAdvanced {
		s.scheduleTimeout(session.ID, len(next.Actions), false, time.Duration(next.Config.TurnSeconds)*time.Second)
	}
	if next.Phase == models.PhaseComplete {
		rt.stopTimer()
		s.dropRuntime(session.ID)
		s.logger.Info("draft completed", slog.String("session_id", session.ID.String()))
	}

	s.broadcast(session, events)
	return nil
}

// scheduleTimeout arms the timer for the current turn. generation is the
// number of applied actions when the timer was armed; a fired timer whose
// generation no longer matches has been outrun by a captain and does
// nothing.
func (s *draftService) scheduleTimeout(sessionID uuid.UUID, generation int, bonus bool, d time.Duration) {
	rt := s.runtime(sessionID)
	rt.stopTimer()
	rt.timer = time.AfterFunc(d, func() {
		s.onTimeout(sessionID, generation, bonus)
	})
}

func (s *draftService) onTimeout(sessionID uuid.UUID, generation int, bonus bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rt := s.runtime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("timeout: load session failed", slog.String("session_id", sessionID.String()), slog.Any("error", err))
		return
	}
	if session.Phase != models.PhasePickBan || len(session.Actions) != generation {
		return
	}

	if !bonus && session.Config.BonusSeconds > 0 && !session.BonusActive {
		// Main time ran out; grant bonus time before auto-picking.
		deadline := time.Now().Add(time.Duration(session.Config.BonusSeconds) * time.Second)
		session.TurnDeadline = &deadline
		session.BonusActive = true
		if err := s.repo.Update(ctx, session); err != nil {
			s.logger.Error("timeout: persist bonus state failed", slog.String("session_id", sessionID.String()), slog.Any("error", err))
			return
		}
		s.scheduleTimeout(sessionID, generation, true, time.Duration(session.Config.BonusSeconds)*time.Second)
		s.broadcastBonus(session)
		return
	}

	s.autoSelect(ctx, session, rt)
}

// autoSelect locks in the lowest-id available hero for the team on turn.
// Used for both bans and picks when bonus time expires.
func (s *draftService) autoSelect(ctx context.Context, session *models.DraftSession, rt *sessionRuntime) {
	pool, err := s.heroPool(ctx)
	if err != nil {
		s.logger.Error("auto-select: hero pool unavailable, retrying",
			slog.String("session_id", session.ID.String()), slog.Any("error", err))
		s.scheduleTimeout(session.ID, len(session.Actions), true, 5*time.Second)
		return
	}

	state := s.toEngineState(session, rt)
	heroID, ok := draft.AutoPickCandidate(state, heroIDs(pool))
	if !ok {
		s.logger.Error("auto-select: hero pool exhausted", slog.String("session_id", session.ID.String()))
		return
	}

	step := state.Order[len(state.Actions)]
	cmd := draft.Command{
		Type:   draft.CmdSubmitAction,
		Team:   step.Team,
		HeroID: heroID,
		IsBan:  step.IsBan,
		Auto:   true,
	}

	events, next, err := draft.Apply(state, cmd)
	if err != nil {
		s.logger.Error("auto-select rejected", slog.String("session_id", session.ID.String()), slog.Any("error", err))
		return
	}
	if err := s.commit(ctx, session, rt, next, events); err != nil {
		s.logger.Error("auto-select commit failed", slog.String("session_id", session.ID.String()), slog.Any("error", err))
	}
}

func (s *draftService) toEngineState(session *models.DraftSession, rt *sessionRuntime) draft.State {
	state := draft.State{
		Phase:        session.Phase,
		Turn:         session.CurrentTurn,
		Team1Present: rt.team1Present,
		Team2Present: rt.team2Present,
		Coin:         session.Coin,
		Actions:      session.Actions,
		Config:       session.Config,
	}
	if session.Phase == models.PhasePickBan || session.Phase == models.PhaseComplete {
		state.Order = draft.BuildOrder(session.Config, session.Coin.Winner)
	}
	return state
}

func (s *draftService) runtime(sessionID uuid.UUID) *sessionRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[sessionID]
	if !ok {
		rt = &sessionRuntime{}
		s.runtimes[sessionID] = rt
	}
	return rt
}

func (s *draftService) dropRuntime(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runtimes, sessionID)
}

func (rt *sessionRuntime) stopTimer() {
	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
}

func (s *draftService) confirmedRegistration(ctx context.Context, tournamentID, regID int) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration %d: %w", regID, err)
	}
	if reg.TournamentID != tournamentID {
		return nil, fmt.Errorf("%w: registration %d belongs to another tournament", ErrValidationFailed, regID)
	}
	if reg.Status != models.RegistrationConfirmed {
		return nil, ErrRegistrationNotConfirmed
	}
	return reg, nil
}

func (s *draftService) heroPool(ctx context.Context) ([]models.Hero, error) {
	pool, err := s.catalog.List(ctx)
	if err != nil {
		return nil, ErrHeroPoolUnavailable
	}
	return pool, nil
}

func (s *draftService) broadcast(session *models.DraftSession, events []draft.Event) {
	if s.hub == nil {
		return
	}
	room := realtime.DraftRoom(session.ID)
	for _, e := range events {
		s.hub.BroadcastToRoom(room, realtime.Message{
			Type:    eventTypeName(e.Type),
			Payload: eventPayload(session, e),
		})
	}
}

func (s *draftService) broadcastBonus(session *models.DraftSession) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(realtime.DraftRoom(session.ID), realtime.Message{
		Type: "bonus_time_started",
		Payload: map[string]interface{}{
			"session_id":    session.ID,
			"current_turn":  session.CurrentTurn,
			"turn_deadline": session.TurnDeadline,
		},
	})
}

func eventTypeName(t draft.EventType) string {
	switch t {
	case draft.EvtPresenceChanged:
		return "presence_changed"
	case draft.EvtPhaseChanged:
		return "phase_changed"
	case draft.EvtSideClaimed:
		return "side_claimed"
	case draft.EvtCoinResolved:
		return "coin_resolved"
	case draft.EvtActionApplied:
		return "action_applied"
	case draft.EvtTurnAdvanced:
		return "turn_advanced"
	case draft.EvtDraftCompleted:
		return "draft_completed"
	default:
		return string(t)
	}
}

func eventPayload(session *models.DraftSession, e draft.Event) map[string]interface{} {
	payload := map[string]interface{}{
		"session_id": session.ID,
	}
	switch e.Type {
	case draft.EvtPresenceChanged:
		payload["team"] = e.Team
		payload["present"] = e.Present
	case draft.EvtPhaseChanged:
		payload["phase"] = e.Phase
	case draft.EvtSideClaimed:
		payload["team"] = e.Team
		payload["side"] = e.Side
	case draft.EvtCoinResolved:
		payload["result"] = e.Result
		payload["winner"] = e.Winner
	case draft.EvtActionApplied:
		payload["team"] = e.Team
		payload["hero_id"] = e.HeroID
		payload["is_ban"] = e.IsBan
		payload["auto"] = e.Auto
	case draft.EvtTurnAdvanced:
		payload["turn"] = e.Turn
		payload["turn_deadline"] = session.TurnDeadline
	case draft.EvtDraftCompleted:
		payload["actions"] = session.Actions
	}
	return payload
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, draft.ErrNotYourTurn),
		errors.Is(err, draft.ErrWrongActionKind),
		errors.Is(err, draft.ErrHeroUnavailable),
		errors.Is(err, draft.ErrSideTaken),
		errors.Is(err, draft.ErrSideAlreadyChosen),
		errors.Is(err, draft.ErrWrongPhase),
		errors.Is(err, draft.ErrDraftComplete):
		return err
	default:
		return fmt.Errorf("draft engine: %w", err)
	}
}

func validateDraftConfig(cfg models.DraftConfig) error {
	if cfg.BansPerTeam < 0 || cfg.PicksPerTeam < 1 {
		return ErrDraftConfigInvalid
	}
	switch cfg.Strategy {
	case models.StrategyAlternating, models.StrategySnake:
	default:
		return ErrDraftConfigInvalid
	}
	if cfg.TurnSeconds < 5 || cfg.BonusSeconds < 0 {
		return ErrDraftConfigInvalid
	}
	return nil
}

func heroIDs(pool []models.Hero) []int {
	ids := make([]int, 0, len(pool))
	for _, h := range pool {
		ids = append(ids, h.ID)
	}
	return ids
}

func containsHero(pool []models.Hero, heroID int) bool {
	for _, h := range pool {
		if h.ID == heroID {
			return true
		}
	}
	return false
}

func flipCoin() models.CoinSide {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return models.SideHeads
	}
	if b[0]%2 == 0 {
		return models.SideHeads
	}
	return models.SideTails
}
