package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteSuccessWithNotices attaches the notifications produced by the action.
func WriteSuccessWithNotices(w http.ResponseWriter, status int, data, notices any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data, Notices: notices})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	WriteErrorWithNotices(ctx, logg, w, err, nil)
}

// WriteErrorWithNotices maps err to its HTTP status and public message.
// Failures that carry a remote fault surface the platform's own text.
func WriteErrorWithNotices(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error, notices any) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{Code: string(typed.Code()), Message: publicMessage(meta, typed, err)}
	if meta.ExposeDetails {
		apiErr.Details = typed.Details()
	}

	logFailure(ctx, logg, meta.Status, err)
	writeJSON(w, meta.Status, types.ErrorEnvelope{Error: apiErr, Notices: notices})
}

func publicMessage(meta pkgerrors.Metadata, typed *pkgerrors.Error, err error) string {
	switch {
	case meta.EchoMessage && typed.Message() != "":
		return typed.Message()
	case typed.Code() == pkgerrors.CodeDependency && pkgerrors.AsRemoteFault(err) != nil:
		return pkgerrors.Describe(err)
	default:
		return meta.Public
	}
}

func logFailure(ctx context.Context, logg *logger.Logger, status int, err error) {
	if logg == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error":       dump.TopMessage,
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
		"status":      status,
	}
	if dump.RootCause != "" {
		fields["root_cause"] = dump.RootCause
	}
	if dump.RemoteStatus != 0 {
		fields["remote_status"] = dump.RemoteStatus
		fields["remote_message"] = dump.RemoteMessage
	}
	ctx = logg.WithFields(ctx, fields)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out; an encode failure only truncates the body
	_ = json.NewEncoder(w).Encode(payload)
}
