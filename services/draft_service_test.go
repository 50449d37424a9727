package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftarena/backend/draft"
	"github.com/draftarena/backend/models"
	"github.com/draftarena/backend/repositories"
)

type fakeDraftRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.DraftSession
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{sessions: make(map[uuid.UUID]*models.DraftSession)}
}

func (r *fakeDraftRepo) Create(ctx context.Context, s *models.DraftSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeDraftRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DraftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrDraftSessionNotFound
	}
	cp := *s
	cp.Actions = append([]models.DraftAction(nil), s.Actions...)
	return &cp, nil
}

func (r *fakeDraftRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.DraftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DraftSession
	for _, s := range r.sessions {
		if s.TournamentID == tournamentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeDraftRepo) Update(ctx context.Context, s *models.DraftSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return repositories.ErrDraftSessionNotFound
	}
	cp := *s
	cp.Actions = append([]models.DraftAction(nil), s.Actions...)
	r.sessions[s.ID] = &cp
	return nil
}

type fakeRegistrationRepo struct {
	regs map[int]*models.Registration
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, reg *models.Registration) error { return nil }

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	reg, ok := r.regs[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	return reg, nil
}

func (r *fakeRegistrationRepo) FindByTeamAndTournament(ctx context.Context, teamID, tournamentID int) (*models.Registration, error) {
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus, withTeams bool) ([]*models.Registration, error) {
	return nil, nil
}

func (r *fakeRegistrationRepo) CountByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) (int, error) {
	return len(r.regs), nil
}

func (r *fakeRegistrationRepo) UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error {
	return nil
}

func (r *fakeRegistrationRepo) Delete(ctx context.Context, id int) error { return nil }

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error { return nil }

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return nil, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error { return nil }

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return nil
}

func (r *fakeTournamentRepo) UpdateWinner(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, winnerRegID *int) error {
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error {
	return nil
}

func (r *fakeTournamentRepo) ListDueForStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	return nil, nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error { return nil }

type fakeCatalog struct {
	heroes []models.Hero
	err    error
}

func (c *fakeCatalog) List(ctx context.Context) ([]models.Hero, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.heroes, nil
}

const (
	organizerID   = 1
	captain1ID    = 10
	captain2ID    = 20
	spectatorID   = 99
	tournamentOne = 1
)

func testCatalog(n int) *fakeCatalog {
	heroes := make([]models.Hero, 0, n)
	for i := 1; i <= n; i++ {
		heroes = append(heroes, models.Hero{ID: i, Name: "Hero"})
	}
	return &fakeCatalog{heroes: heroes}
}

func testTournament() *models.Tournament {
	return &models.Tournament{
		ID:          tournamentOne,
		OrganizerID: organizerID,
		Status:      models.StatusActive,
		BracketType: models.BracketSingleElimination,

		DraftBansPerTeam:  1,
		DraftPicksPerTeam: 5,
		DraftStrategy:     string(models.StrategyAlternating),
		DraftTurnSeconds:  30,
		DraftBonusSeconds: 10,
	}
}

func newTestDraftService(t *testing.T, catalog *fakeCatalog) (DraftService, *fakeDraftRepo) {
	t.Helper()
	draftRepo := newFakeDraftRepo()
	regRepo := &fakeRegistrationRepo{regs: map[int]*models.Registration{
		100: {ID: 100, TournamentID: tournamentOne, TeamID: 1, CaptainID: captain1ID, Status: models.RegistrationConfirmed},
		200: {ID: 200, TournamentID: tournamentOne, TeamID: 2, CaptainID: captain2ID, Status: models.RegistrationConfirmed},
		300: {ID: 300, TournamentID: tournamentOne, TeamID: 3, CaptainID: 30, Status: models.RegistrationPending},
	}}
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		tournamentOne: testTournament(),
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewDraftService(draftRepo, regRepo, tournamentRepo, catalog, nil, logger)
	return svc, draftRepo
}

func createTestSession(t *testing.T, svc DraftService) *models.DraftSession {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), tournamentOne, organizerID, CreateDraftInput{
		Team1RegID: 100,
		Team2RegID: 200,
	})
	require.NoError(t, err)
	return session
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _ := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()

	t.Run("organizer only", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, tournamentOne, captain1ID, CreateDraftInput{Team1RegID: 100, Team2RegID: 200})
		assert.ErrorIs(t, err, ErrOrganizerOnly)
	})

	t.Run("unconfirmed registration", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, tournamentOne, organizerID, CreateDraftInput{Team1RegID: 100, Team2RegID: 300})
		assert.ErrorIs(t, err, ErrRegistrationNotConfirmed)
	})

	t.Run("same registration twice", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, tournamentOne, organizerID, CreateDraftInput{Team1RegID: 100, Team2RegID: 100})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("pool too small", func(t *testing.T) {
		small, _ := newTestDraftService(t, testCatalog(5))
		_, err := small.CreateSession(ctx, tournamentOne, organizerID, CreateDraftInput{Team1RegID: 100, Team2RegID: 200})
		assert.ErrorIs(t, err, ErrDraftConfigInvalid)
	})
}

func TestPresenceGatesCoinToss(t *testing.T) {
	svc, _ := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()
	session := createTestSession(t, svc)

	_, err := svc.Connect(ctx, session.ID, spectatorID)
	assert.ErrorIs(t, err, ErrNotSessionCaptain)

	got, err := svc.Connect(ctx, session.ID, captain1ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseWaiting, got.Phase)

	// Choosing a side before both captains are present is rejected.
	_, err = svc.ChooseSide(ctx, session.ID, captain1ID, models.SideHeads)
	assert.ErrorIs(t, err, draft.ErrWrongPhase)

	got, err = svc.Connect(ctx, session.ID, captain2ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCoinToss, got.Phase)
	assert.Equal(t, models.DraftInProgress, got.Status)
}

func TestCoinTossSideClaims(t *testing.T) {
	svc, _ := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()
	session := createTestSession(t, svc)

	_, err := svc.Connect(ctx, session.ID, captain1ID)
	require.NoError(t, err)
	_, err = svc.Connect(ctx, session.ID, captain2ID)
	require.NoError(t, err)

	_, err = svc.ChooseSide(ctx, session.ID, captain1ID, models.SideHeads)
	require.NoError(t, err)

	// Same side again from the other captain loses the claim race.
	_, err = svc.ChooseSide(ctx, session.ID, captain2ID, models.SideHeads)
	assert.ErrorIs(t, err, draft.ErrSideTaken)

	// Choosing twice is rejected.
	_, err = svc.ChooseSide(ctx, session.ID, captain1ID, models.SideTails)
	assert.ErrorIs(t, err, draft.ErrSideAlreadyChosen)

	got, err := svc.ChooseSide(ctx, session.ID, captain2ID, models.SideTails)
	require.NoError(t, err)
	assert.Equal(t, models.PhasePickBan, got.Phase)
	assert.NotEqual(t, models.SlotNone, got.CurrentTurn)
	assert.NotEqual(t, models.SlotNone, got.Coin.Winner)
	require.NotNil(t, got.TurnDeadline)
	assert.True(t, got.TurnDeadline.After(time.Now()))
}

func captainFor(session *models.DraftSession, slot models.TeamSlot) int {
	if slot == models.SlotTeam1 {
		return session.Team1CaptainID
	}
	return session.Team2CaptainID
}

func runToPickBan(t *testing.T, svc DraftService, session *models.DraftSession) *models.DraftSession {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Connect(ctx, session.ID, captain1ID)
	require.NoError(t, err)
	_, err = svc.Connect(ctx, session.ID, captain2ID)
	require.NoError(t, err)
	_, err = svc.ChooseSide(ctx, session.ID, captain1ID, models.SideHeads)
	require.NoError(t, err)
	got, err := svc.ChooseSide(ctx, session.ID, captain2ID, models.SideTails)
	require.NoError(t, err)
	require.Equal(t, models.PhasePickBan, got.Phase)
	return got
}

func TestFullDraftCompletes(t *testing.T) {
	svc, repo := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()
	session := runToPickBan(t, svc, createTestSession(t, svc))

	// 1 ban and 5 picks per team is 12 actions total.
	const totalActions = 12
	heroID := 1
	var got *models.DraftSession
	for i := 0; i < totalActions; i++ {
		current, err := svc.GetSession(ctx, session.ID)
		require.NoError(t, err)
		userID := captainFor(current, current.CurrentTurn)

		// Submitting out of turn is rejected and changes nothing.
		other := captain1ID
		if userID == captain1ID {
			other = captain2ID
		}
		_, err = svc.SubmitAction(ctx, session.ID, other, heroID, nil)
		require.ErrorIs(t, err, draft.ErrNotYourTurn)

		got, err = svc.SubmitAction(ctx, session.ID, userID, heroID, nil)
		require.NoError(t, err, "action %d", i)
		heroID++
	}

	assert.Equal(t, models.PhaseComplete, got.Phase)
	assert.Equal(t, models.DraftCompleted, got.Status)
	assert.Equal(t, models.SlotNone, got.CurrentTurn)
	assert.Nil(t, got.TurnDeadline)
	assert.Len(t, got.Actions, totalActions)

	// No hero appears twice.
	seen := make(map[int]bool)
	bans, picks := 0, 0
	for _, a := range got.Actions {
		assert.False(t, seen[a.HeroID], "hero %d used twice", a.HeroID)
		seen[a.HeroID] = true
		if a.IsBan {
			bans++
		} else {
			picks++
		}
	}
	assert.Equal(t, 2, bans)
	assert.Equal(t, 10, picks)

	// A 13th action is rejected.
	_, err := svc.SubmitAction(ctx, session.ID, captain1ID, heroID, nil)
	assert.ErrorIs(t, err, draft.ErrDraftComplete)

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftCompleted, stored.Status)
}

func TestSubmitActionValidation(t *testing.T) {
	svc, _ := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()
	session := runToPickBan(t, svc, createTestSession(t, svc))

	current, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	userID := captainFor(current, current.CurrentTurn)

	// Unknown hero id.
	_, err = svc.SubmitAction(ctx, session.ID, userID, 9999, nil)
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Spectators cannot act.
	_, err = svc.SubmitAction(ctx, session.ID, spectatorID, 1, nil)
	assert.ErrorIs(t, err, ErrNotSessionCaptain)

	// Declaring a pick while the order expects a ban is rejected.
	pick := false
	_, err = svc.SubmitAction(ctx, session.ID, userID, 1, &pick)
	assert.ErrorIs(t, err, draft.ErrWrongActionKind)

	// Duplicate hero.
	_, err = svc.SubmitAction(ctx, session.ID, userID, 7, nil)
	require.NoError(t, err)
	current, err = svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAction(ctx, session.ID, captainFor(current, current.CurrentTurn), 7, nil)
	assert.ErrorIs(t, err, draft.ErrHeroUnavailable)
}

func TestTimeoutGrantsBonusThenAutoSelects(t *testing.T) {
	svc, repo := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()
	session := runToPickBan(t, svc, createTestSession(t, svc))

	ds := svc.(*draftService)

	// First expiry of the main timer only arms bonus time.
	ds.onTimeout(session.ID, 0, false)
	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.BonusActive)
	assert.Empty(t, got.Actions)
	require.NotNil(t, got.TurnDeadline)

	firstTurn := got.CurrentTurn

	// Bonus expiry locks in the lowest available hero for the team on turn.
	ds.onTimeout(session.ID, 0, true)
	got, err = repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, got.Actions, 1)
	assert.True(t, got.Actions[0].Auto)
	assert.Equal(t, 1, got.Actions[0].HeroID)
	assert.Equal(t, firstTurn, got.Actions[0].Team)
	assert.True(t, got.Actions[0].IsBan, "first step of the order is a ban")
	assert.False(t, got.BonusActive)

	// A stale timer whose generation was outrun does nothing.
	ds.onTimeout(session.ID, 0, true)
	got, err = repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, got.Actions, 1)
}

func TestDisconnectDoesNotRegressPickBan(t *testing.T) {
	svc, _ := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()
	session := runToPickBan(t, svc, createTestSession(t, svc))

	svc.Disconnect(ctx, session.ID, captain1ID)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhasePickBan, got.Phase)

	// The remaining captain can still act when it is their turn.
	userID := captainFor(got, got.CurrentTurn)
	_, err = svc.SubmitAction(ctx, session.ID, userID, 3, nil)
	assert.NoError(t, err)
}

func TestHeroPoolUnavailable(t *testing.T) {
	catalog := testCatalog(30)
	svc, _ := newTestDraftService(t, catalog)
	ctx := context.Background()
	session := runToPickBan(t, svc, createTestSession(t, svc))

	catalog.err = errors.New("upstream down")

	current, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAction(ctx, session.ID, captainFor(current, current.CurrentTurn), 1, nil)
	assert.ErrorIs(t, err, ErrHeroPoolUnavailable)
}

func TestSnapshotIdempotent(t *testing.T) {
	svc, _ := newTestDraftService(t, testCatalog(30))
	ctx := context.Background()
	session := runToPickBan(t, svc, createTestSession(t, svc))

	first, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	second, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
