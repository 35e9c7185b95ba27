package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"resolveit/pkg/apperror"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	resp := APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
	JSON(w, statusCode, resp)
}

// Ack writes a 200 acknowledgment without a body beyond the message.
func Ack(w http.ResponseWriter, message string) {
	Success(w, http.StatusOK, message, nil)
}

func Error(w http.ResponseWriter, statusCode int, message string, errDetail string) {
	resp := APIResponse{
		Status:  "error",
		Message: message,
		Error:   errDetail,
	}
	JSON(w, statusCode, resp)
}

// Fail writes err using the status its kind maps to. Validation failures carry
// the failing field in data; internal failures never expose their cause.
func Fail(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		Error(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	resp := APIResponse{Status: "error", Message: appErr.Message}
	if appErr.Kind == apperror.KindValidation && appErr.Detail != "" {
		resp.Data = appErr.Detail
	}
	JSON(w, appErr.HTTPStatus(), resp)
}
