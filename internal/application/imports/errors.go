package imports

import (
	"errors"
	"fmt"
)

// File-level errors. Any of these aborts the whole import.
var (
	ErrEmptyFile            = errors.New("El archivo está vacío o no contiene datos")
	ErrEncodingUnresolvable = errors.New("No se pudo leer el archivo CSV con ningún encoding compatible")
	ErrUnsupportedFormat    = errors.New("Formato de archivo no soportado. Use .csv, .xlsx o .xls")
	ErrUnknownMode          = errors.New("Tipo de carga no válido")
)

// MissingFieldError reports a required column that is absent or blank in a row.
type MissingFieldError struct {
	Name string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Campo obligatorio faltante: %s", e.Name)
}

// RowTypeError reports a value that could not be converted to its column type.
type RowTypeError struct {
	Err error
}

func (e *RowTypeError) Error() string {
	return fmt.Sprintf("Error en tipos de datos: %s", e.Err)
}

func (e *RowTypeError) Unwrap() error { return e.Err }

// RowPersistError wraps a repository failure for one row, uniqueness conflicts included.
type RowPersistError struct {
	Err error
}

func (e *RowPersistError) Error() string {
	return fmt.Sprintf("Error al guardar el registro: %s", e.Err)
}

func (e *RowPersistError) Unwrap() error { return e.Err }

// RowFactorError reports factor values rejected by the shared factor rules (opt-in for bulk rows).
type RowFactorError struct {
	Err error
}

func (e *RowFactorError) Error() string {
	return fmt.Sprintf("Factores no válidos: %s", joinLines(e.Err.Error()))
}

func (e *RowFactorError) Unwrap() error { return e.Err }

// FileError wraps a file-level failure with the file name.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("Error al leer archivo %s: %s", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
