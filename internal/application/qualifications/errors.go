package qualifications

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDuplicateQualification = errors.New("Ya existe una calificación activa con el mismo ejercicio, mercado, instrumento y secuencia")
	ErrNotFound               = errors.New("Calificación no encontrada")
	ErrForbidden              = errors.New("User is Forbidden from performing this action")
)

// ValidationError maps each rejected field to its message. Err keeps the underlying
// factor error, if any, for errors.As.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "Datos no válidos: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }
