package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	"github.com/angelmondragon/orderdesk-backend/internal/workspace"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

// Workspaces is the registry surface the HTTP layer drives.
type Workspaces interface {
	Open(ctx context.Context, orderID string) (*workspace.Workspace, error)
	Get(id string) (*workspace.Workspace, error)
	Close(ctx context.Context, id string) error
}

type openWorkspaceRequest struct {
	OrderID string `json:"order_id" validate:"required,notblank,max=64"`
}

// WorkspaceOpen mounts both views for an order and returns their first render.
func WorkspaceOpen(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload openWorkspaceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ws, err := svc.Open(r.Context(), payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWithNotices(w, http.StatusCreated, ws.Snapshot(), ws.Toasts.Drain())
	}
}

func WorkspaceGet(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, ws.Snapshot())
	}
}

func WorkspaceClose(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := workspaceIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Close(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// WorkspaceToasts drains the notifications queued since the last drain.
func WorkspaceToasts(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, ws.Toasts.Drain())
	}
}

func workspaceIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "workspaceId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "workspace id is required")
	}
	return id, nil
}

func lookupWorkspace(w http.ResponseWriter, r *http.Request, svc Workspaces, logg *logger.Logger) (*workspace.Workspace, bool) {
	id, err := workspaceIDParam(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	ws, err := svc.Get(id)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return ws, true
}

// writeViewResult answers a view operation, carrying the toasts it raised
// on both the success and the error path.
func writeViewResult(w http.ResponseWriter, r *http.Request, logg *logger.Logger, ws *workspace.Workspace, data any, err error) {
	notices := ws.Toasts.Drain()
	if err != nil {
		responses.WriteErrorWithNotices(r.Context(), logg, w, err, notices)
		return
	}
	responses.WriteSuccessWithNotices(w, http.StatusOK, data, notices)
}
