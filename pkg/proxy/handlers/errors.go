package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ganymede-hq/ganymede/pkg/backend"
	"ganymede-hq/ganymede/pkg/proxy/types"
	"ganymede-hq/ganymede/pkg/session"
	"ganymede-hq/ganymede/pkg/translator"
	"ganymede-hq/ganymede/pkg/transport"
	"ganymede-hq/ganymede/pkg/wire"
)

// classify maps an internal error to an HTTP status and OpenAI error type.
func classify(err error) (status int, detail types.ErrorDetail) {
	var capErr *translator.CapabilityError
	if errors.As(err, &capErr) {
		return http.StatusBadRequest, types.ErrorDetail{
			Message: capErr.Error(),
			Type:    "invalid_request_error",
			Param:   "model",
		}
	}

	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.IsAuthFailure():
			return http.StatusUnauthorized, types.ErrorDetail{
				Message: "backend rejected the credential",
				Type:    "authentication_error",
			}
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, types.ErrorDetail{
				Message: "backend rate limit exceeded",
				Type:    "rate_limit_exceeded",
			}
		default:
			return http.StatusBadGateway, types.ErrorDetail{
				Message: httpErr.Error(),
				Type:    "bad_gateway",
			}
		}
	}

	var exhausted *transport.RetryExhaustedError
	var streamErr *backend.StreamError
	if errors.As(err, &exhausted) || errors.As(err, &streamErr) {
		return http.StatusBadGateway, types.ErrorDetail{
			Message: err.Error(),
			Type:    "bad_gateway",
		}
	}

	var timeout *session.HeartbeatTimeoutError
	if errors.As(err, &timeout) {
		return http.StatusGatewayTimeout, types.ErrorDetail{
			Message: timeout.Error(),
			Type:    "gateway_timeout",
		}
	}

	var invalidated *session.InvalidatedError
	if errors.As(err, &invalidated) {
		// Recoverable: the next request starts a fresh conversation.
		return http.StatusConflict, types.ErrorDetail{
			Message: invalidated.Error(),
			Type:    "server_error",
			Code:    "session_invalidated",
		}
	}

	var malformed *wire.MalformedError
	if errors.As(err, &malformed) {
		return http.StatusBadGateway, types.ErrorDetail{
			Message: malformed.Error(),
			Type:    "bad_gateway",
			Code:    "malformed_backend_frame",
		}
	}

	return http.StatusInternalServerError, types.ErrorDetail{
		Message: err.Error(),
		Type:    "server_error",
	}
}

// writeError writes one OpenAI-shaped error response.
func writeError(w http.ResponseWriter, err error) {
	status, detail := classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.ErrorResponse{Error: detail})
}

// writeInvalid writes a 400 invalid_request_error with a message.
func writeInvalid(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(types.ErrorResponse{Error: types.ErrorDetail{
		Message: msg,
		Type:    "invalid_request_error",
	}})
}
