package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// WriteError renders err as an ErrorResponse. Errors that are not AppErrors are reported
// as opaque internal errors so causes never leak to clients.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	if appErr.Code == CodeRateLimited {
		if secs, ok := appErr.Details[DetailRetryAfter].(int64); ok {
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		}
	}
	w.WriteHeader(appErr.StatusCode())

	response := ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.Code == CodeInternal {
		response.Details = nil
	}

	return json.NewEncoder(w).Encode(response)
}
