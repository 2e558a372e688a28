package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/types"
)

// ===== 统一响应信封 =====

// successEnvelope 是成功响应信封.
type successEnvelope struct {
	Status   string         `json:"status"`
	Response any            `json:"response"`
	Context  map[string]any `json:"context,omitempty"`
}

// errorEnvelope 是错误响应信封.
type errorEnvelope struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

type errorBody struct {
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

// WriteSuccess 写成功信封.
func WriteSuccess(w http.ResponseWriter, response any, queryContext map[string]any) {
	writeJSON(w, http.StatusOK, successEnvelope{
		Status:   "success",
		Response: response,
		Context:  queryContext,
	})
}

// WriteError 写错误信封.
func WriteError(w http.ResponseWriter, status int, code types.ErrorCode, message string) {
	writeJSON(w, status, errorEnvelope{
		Status: "error",
		Error:  errorBody{Code: code, Message: message},
	})
}

// WriteErrorFrom 把任意 error 映射为错误信封.
// *types.Error 按其错误码与 HTTP 状态写出，其余一律 500 INTERNAL_ERROR，
// 不泄露内部细节.
func WriteErrorFrom(w http.ResponseWriter, err error) {
	if typed, ok := err.(*types.Error); ok {
		status := typed.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		WriteError(w, status, typed.Code, typed.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, types.ErrInternalError,
		"An unexpected error occurred")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}
