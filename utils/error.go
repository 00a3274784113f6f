package utils

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies failures surfaced by the sync core.
type ErrorKind string

const (
	KindFormat          ErrorKind = "FORMAT"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindIntegrity       ErrorKind = "INTEGRITY"
	KindStorage         ErrorKind = "STORAGE"
	KindUnsupportedKind ErrorKind = "UNSUPPORTED_KIND"
	KindValidation      ErrorKind = "VALIDATION"
	KindSession         ErrorKind = "SESSION"
	KindBusy            ErrorKind = "BUSY"
)

// SyncError carries a kind, the failing operation and an optional cause.
type SyncError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }

// Is matches any SyncError of the same kind, so the sentinels below work with errors.Is.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

var (
	ErrFormat          = &SyncError{Kind: KindFormat}
	ErrNotFound        = &SyncError{Kind: KindNotFound}
	ErrIntegrity       = &SyncError{Kind: KindIntegrity}
	ErrStorage         = &SyncError{Kind: KindStorage}
	ErrUnsupportedKind = &SyncError{Kind: KindUnsupportedKind}
	ErrValidation      = &SyncError{Kind: KindValidation}
	ErrSession         = &SyncError{Kind: KindSession}
	ErrBusy            = &SyncError{Kind: KindBusy}

	ErrorRecordNotFound = &SyncError{Kind: KindNotFound, Message: "record not found"}
	ErrNoActiveSession  = &SyncError{Kind: KindSession, Message: "representative code is required"}
)

func FormatError(op string, format string, args ...any) error {
	return &SyncError{Kind: KindFormat, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(op string, format string, args ...any) error {
	return &SyncError{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func IntegrityError(op string, format string, args ...any) error {
	return &SyncError{Kind: KindIntegrity, Op: op, Message: fmt.Sprintf(format, args...)}
}

func UnsupportedKindError(op string, kind string) error {
	return &SyncError{Kind: KindUnsupportedKind, Op: op, Message: fmt.Sprintf("unsupported kind %q", kind)}
}

func SessionError(op string, format string, args ...any) error {
	return &SyncError{Kind: KindSession, Op: op, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(op string, err error) error {
	return &SyncError{Kind: KindValidation, Op: op, Message: "invalid input", Err: err}
}

// StorageError wraps a store failure. A GORM not-found becomes NotFound; an error that already
// carries a kind passes through unchanged.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &SyncError{Kind: KindNotFound, Op: op, Message: "record not found"}
	}
	return &SyncError{Kind: KindStorage, Op: op, Message: "store operation failed", Err: err}
}

// KindOf returns the kind of err, or STORAGE for unclassified errors.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorage
}

var userMessages = map[string]map[ErrorKind]string{
	"en": {
		KindFormat:          "The file does not have the expected format.",
		KindNotFound:        "The requested data was not found.",
		KindIntegrity:       "The data refers to a record that does not exist.",
		KindStorage:         "The local database could not complete the operation.",
		KindUnsupportedKind: "This kind of file is not supported.",
		KindValidation:      "Some fields are not valid.",
		KindSession:         "Please sign in first.",
		KindBusy:            "The sync service is busy, try again later.",
	},
	"es": {
		KindFormat:          "El fichero no tiene el formato esperado.",
		KindNotFound:        "No se han encontrado los datos solicitados.",
		KindIntegrity:       "Los datos hacen referencia a un registro que no existe.",
		KindStorage:         "La base de datos local no ha podido completar la operación.",
		KindUnsupportedKind: "Este tipo de fichero no está soportado.",
		KindValidation:      "Algunos campos no son válidos.",
		KindSession:         "Inicie sesión primero.",
		KindBusy:            "El servicio de sincronización está ocupado, inténtelo más tarde.",
	},
}

// UserMessage returns a short localized message and the underlying cause string.
func UserMessage(err error, locale string) (string, string) {
	if err == nil {
		return "", ""
	}
	messages, ok := userMessages[locale]
	if !ok {
		messages = userMessages["en"]
	}
	return messages[KindOf(err)], err.Error()
}
