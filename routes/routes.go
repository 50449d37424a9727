package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/draftarena/backend/handlers"
	"github.com/draftarena/backend/middleware"
	"github.com/draftarena/backend/models"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Team         *handlers.TeamHandler
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Match        *handlers.MatchHandler
	Draft        *handlers.DraftHandler
	WebSocket    *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, auth *middleware.Authenticator) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)
	router.With(auth.Authenticate).Get("/me", h.Auth.Me)

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", h.Team.GetTeamByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/", h.Team.CreateTeam)
			r.Put("/{teamID}", h.Team.UpdateTeam)
			r.Delete("/{teamID}", h.Team.DeleteTeam)
			r.Post("/{teamID}/logo", h.Team.UploadLogo)
			r.Post("/{teamID}/invites", h.Team.CreateInvite)
			r.Post("/join", h.Team.JoinByInvite)
			r.Post("/leave", h.Team.LeaveTeam)
			r.Delete("/{teamID}/members/{memberID}", h.Team.RemoveMember)
			r.Post("/{teamID}/captain", h.Team.TransferCaptain)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListTournaments)
		r.Get("/{tournamentID}", h.Tournament.GetTournamentByID)
		r.Get("/{tournamentID}/registrations", h.Registration.ListByTournament)
		r.Get("/{tournamentID}/matches", h.Match.ListByTournament)
		r.Get("/{tournamentID}/drafts", h.Draft.ListByTournament)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/{tournamentID}/registrations", h.Registration.RegisterTeam)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(models.RoleOrganizer, models.RoleAdmin))

				r.Post("/", h.Tournament.CreateTournament)
				r.Put("/{tournamentID}", h.Tournament.UpdateTournament)
				r.Patch("/{tournamentID}/status", h.Tournament.ChangeStatus)
				r.Delete("/{tournamentID}", h.Tournament.DeleteTournament)
				r.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
				r.Post("/{tournamentID}/drafts", h.Draft.CreateSession)
			})
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Patch("/{registrationID}/status", h.Registration.ChangeStatus)
		r.Delete("/{registrationID}", h.Registration.Withdraw)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetMatchByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{matchID}/result", h.Match.ReportResult)
		})
	})

	router.Route("/drafts", func(r chi.Router) {
		r.Get("/{sessionID}", h.Draft.GetSession)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/{sessionID}/coin", h.Draft.ChooseSide)
			r.Post("/{sessionID}/actions", h.Draft.SubmitAction)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
	router.Get("/ws/drafts/{sessionID}", h.WebSocket.ServeDraft)

	return router
}
