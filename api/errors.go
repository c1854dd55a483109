package api

import (
	"net/http"

	"github.com/warp/vacation-tracker/vacation"
)

// statusFor maps a core error kind to its HTTP status. InvalidState is a 400,
// not a 409: the client asked for a move the lifecycle never allows.
var statusFor = map[vacation.Kind]int{
	vacation.KindNotFound:     http.StatusNotFound,
	vacation.KindForbidden:    http.StatusForbidden,
	vacation.KindInvalidState: http.StatusBadRequest,
	vacation.KindValidation:   http.StatusBadRequest,
	vacation.KindConflict:     http.StatusConflict,
	vacation.KindInternal:     http.StatusInternalServerError,
}

var messageFor = map[vacation.Kind]string{
	vacation.KindNotFound:     "Vacation not found",
	vacation.KindForbidden:    "Not allowed to modify this vacation",
	vacation.KindInvalidState: "Operation not allowed in the current status",
	vacation.KindValidation:   "Invalid input",
	vacation.KindConflict:     "Vacation was modified concurrently, reload and retry",
	vacation.KindInternal:     "Internal server error",
}

// writeServiceError renders err with the status of its kind. Internal errors
// are logged and their details withheld.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := vacation.KindOf(err)
	resp := ErrorResponse{Error: messageFor[kind], Code: string(kind)}

	switch {
	case vacation.IsClientError(err):
		resp.Details = err.Error()
	case vacation.IsRetryable(err):
		h.logger.Warn("request lost a concurrent update", zapRequest(r, err)...)
		resp.Details = err.Error()
	default:
		h.logger.Error("request failed", zapRequest(r, err)...)
	}
	writeJSON(w, statusFor[kind], resp)
}
