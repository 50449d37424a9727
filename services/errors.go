package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules.
	ErrValidationFailed         = errors.New("validation failed")
	ErrPasswordTooShort         = errors.New("password is too short")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrTeamNameRequired         = errors.New("team name is required")
	ErrUserAlreadyInTeam        = errors.New("user is already in a team")
	ErrUserNotInTeam            = errors.New("user is not a member of this team")
	ErrCannotRemoveCaptain      = errors.New("cannot remove the team captain")
	ErrInviteExpired            = errors.New("invite has expired")
	ErrRegistrationNotOpen      = errors.New("tournament registration is not open")
	ErrTournamentFull           = errors.New("tournament registration is full")
	ErrRegistrationNotConfirmed = errors.New("registration is not confirmed")

	// Conflicts.
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrUserNicknameConflict   = errors.New("nickname is already in use")
	ErrTeamNameConflict       = errors.New("team name is already in use")
	ErrRegistrationConflict   = errors.New("team is already registered for this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")

	// Authentication and authorization.
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrOrganizerOnly          = errors.New("only the tournament organizer can perform this action")

	// Entity-specific not-found variants. They map to ErrNotFound in HTTP
	// terms but keep the message useful.
	ErrUserNotFound         = errors.New("user not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrDraftNotFound        = errors.New("draft session not found")

	// Tournament lifecycle.
	ErrTournamentInvalidRegDate          = errors.New("tournament registration deadline must precede the start date")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNotActive               = errors.New("tournament is not active")
	ErrBracketAlreadyGenerated           = errors.New("bracket has already been generated")
	ErrNotEnoughParticipants             = errors.New("not enough confirmed registrations to generate a bracket")

	// Matches.
	ErrMatchAlreadyCompleted   = errors.New("match is already completed")
	ErrMatchMissingParticipant = errors.New("match does not have both participants yet")
	ErrInvalidWinner           = errors.New("winner must be one of the match participants")

	// Drafts.
	ErrNotSessionCaptain   = errors.New("user is not a captain in this draft session")
	ErrDraftAlreadyExists  = errors.New("a draft session already exists for this pairing")
	ErrDraftConfigInvalid  = errors.New("draft configuration is invalid")
	ErrHeroPoolUnavailable = errors.New("hero catalog is unavailable")
)
