package realtime

import (
	"fmt"

	"github.com/google/uuid"
)

func TournamentRoom(tournamentID int) string {
	return fmt.Sprintf("tournament:%d", tournamentID)
}

func DraftRoom(sessionID uuid.UUID) string {
	return fmt.Sprintf("draft:%s", sessionID)
}
