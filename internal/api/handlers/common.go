package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Shared user-facing messages
const (
	msgUnauthorized  = "No autorizado"
	msgInvalidBody   = "Cuerpo de la solicitud inválido"
	msgValidation    = "Validación fallida"
	msgNoStore       = "Base de datos no configurada"
	msgIdentityError = "No se pudo resolver la identidad del usuario"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
