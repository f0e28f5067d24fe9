package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/YspCoder/menuctl/pkg/logger"
	"github.com/YspCoder/menuctl/pkg/richmenu"
)

type errorBody struct {
	Error   string      `json:"error"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
}

var successBody = map[string]bool{"success": true}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError renders err with the status carried by a *richmenu.Error.
// Transport failures and unusable success bodies become 502, anything
// untyped 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error(), Status: http.StatusInternalServerError}

	var apiErr *richmenu.Error
	if errors.As(err, &apiErr) {
		body.Error = apiErr.Message
		body.Status = apiErr.StatusCode
		// A typed error without a failure status means LINE answered with
		// something unusable, which is an upstream fault.
		if apiErr.Kind == richmenu.KindTransport || body.Status < http.StatusBadRequest {
			body.Status = http.StatusBadGateway
			if apiErr.Err != nil {
				body.Details = apiErr.Err.Error()
			} else if apiErr.Detail != nil {
				body.Details = apiErr.Detail
			}
		} else if apiErr.Detail != nil {
			body.Details = apiErr.Detail
		}
	}

	fields := map[string]interface{}{
		logger.FieldMethod:    r.Method,
		logger.FieldPath:      r.URL.Path,
		logger.FieldStatus:    body.Status,
		logger.FieldError:     err.Error(),
		logger.FieldRequestID: GetRequestID(r.Context()),
	}
	if body.Status >= http.StatusInternalServerError {
		logger.ErrorCF("server", "Request failed", fields)
	} else {
		logger.DebugCF("server", "Request rejected", fields)
	}
	writeJSON(w, body.Status, body)
}

func writeBadRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:  fmt.Sprintf(format, args...),
		Status: http.StatusBadRequest,
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
