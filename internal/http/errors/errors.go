// Package errors define la respuesta de error única del API.
//
// El contrato con el cliente es mínimo a propósito: {"ok":false,"error":"..."}
// con un texto corto y machine-readable. Nada interno (stack traces, texto de
// errores de GoTrue, sub-razón de verificación) cruza esta frontera.
package errors

import (
	"encoding/json"
	"net/http"
)

// AppError es un error con representación HTTP directa.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrUnsupportedMedia = &AppError{Status: http.StatusUnsupportedMediaType, Message: "Unsupported content type"}
	ErrInvalidPayload   = &AppError{Status: http.StatusBadRequest, Message: "Invalid payload"}
	ErrInvalidToken     = &AppError{Status: http.StatusUnauthorized, Message: "Invalid or expired Firebase ID token"}
	ErrTooManyRequests  = &AppError{Status: http.StatusTooManyRequests, Message: "Too many requests"}
	ErrInternal         = &AppError{Status: http.StatusInternalServerError, Message: "Internal error"}
)

type errorEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NoStore marca la respuesta como no cacheable. Toda respuesta de este
// servicio puede llevar datos de identidad, así que va en todas.
func NoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteError escribe el envelope de error. Errores que no son *AppError
// colapsan en ErrInternal.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*AppError)
	if !ok {
		appErr = ErrInternal
	}

	NoStore(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{OK: false, Error: appErr.Message})
}

// WriteJSON escribe una respuesta JSON con no-store.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	NoStore(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
