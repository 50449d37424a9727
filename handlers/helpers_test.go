package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/draftarena/backend/draft"
	"github.com/draftarena/backend/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"draft not found", services.ErrDraftNotFound, http.StatusNotFound},
		{"not session captain", services.ErrNotSessionCaptain, http.StatusForbidden},
		{"validation", services.ErrValidationFailed, http.StatusBadRequest},
		{"hero pool unavailable", services.ErrHeroPoolUnavailable, http.StatusBadGateway},

		// Stale draft commands are conflicts, not bad requests.
		{"not your turn", draft.ErrNotYourTurn, http.StatusConflict},
		{"wrong phase", draft.ErrWrongPhase, http.StatusConflict},
		{"draft complete", draft.ErrDraftComplete, http.StatusConflict},
		{"hero unavailable", draft.ErrHeroUnavailable, http.StatusConflict},
		{"side taken", draft.ErrSideTaken, http.StatusConflict},

		{"wrong action kind", draft.ErrWrongActionKind, http.StatusBadRequest},
		{"side already chosen", draft.ErrSideAlreadyChosen, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", nil)

			mapServiceErrorToHTTP(rec, req, tc.err)

			if rec.Code != tc.want {
				t.Fatalf("want %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
