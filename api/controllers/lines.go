package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

func LinesList(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, ws.Lines.Snapshot())
	}
}

func LinesReload(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		err := ws.Lines.LoadOrderItems(r.Context())
		writeViewResult(w, r, logg, ws, ws.Lines.Snapshot(), err)
	}
}

// LineRemove deletes {orderItemId}. The empty-id guard lives in the view so
// the caller still gets its error toast.
func LineRemove(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		itemID := strings.TrimSpace(chi.URLParam(r, "orderItemId"))
		err := ws.Lines.RemoveOrderItem(r.Context(), itemID)
		writeViewResult(w, r, logg, ws, ws.Lines.Snapshot(), err)
	}
}

type activationStatusResponse struct {
	State     enums.ActivationState `json:"state"`
	Activated bool                  `json:"activated"`
}

func ActivationCheck(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		state := ws.Lines.CheckActivationStatus(r.Context())
		writeViewResult(w, r, logg, ws, activationStatusResponse{
			State:     state,
			Activated: state == enums.ActivationStateActivated,
		}, nil)
	}
}

func OrderActivate(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		err := ws.Lines.ActivateOrder(r.Context())
		writeViewResult(w, r, logg, ws, ws.Lines.Snapshot(), err)
	}
}
