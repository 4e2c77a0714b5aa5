package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type contextKey string

const ctxWorkspaceID contextKey = "workspace_id"

// WorkspaceIDFromContext returns the workspace addressed by the current route.
func WorkspaceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxWorkspaceID).(string); ok {
		return v
	}
	return ""
}

func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxWorkspaceID, workspaceID)
}

// WorkspaceScope copies the {workspaceId} route param into the request
// context and the log fields.
func WorkspaceScope(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(chi.URLParam(r, "workspaceId"))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithWorkspaceID(r.Context(), id)
			if logg != nil {
				ctx = logg.WithWorkspaceID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
