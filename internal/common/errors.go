// Package common defines the error taxonomy shared by the storage kernel and
// its shell, plus a few byte helpers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Store errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorInvalidName   = errors.New("invalid name")

	// Ledger errors.
	ErrorQuotaExceeded = errors.New("quota exceeded")

	// Open-handle errors.
	ErrorLimitExceeded = errors.New("open file limit exceeded")
	ErrorAlreadyOpen   = errors.New("already open")
	ErrorNotOpen       = errors.New("not open")

	// User errors.
	ErrorTargetUserNotFound = errors.New("target user not found")
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorUserLimitReached   = errors.New("user limit reached")
	ErrorDuplicateUsername  = errors.New("username already exists")

	// ErrorInterrupted is returned when waiting for the mutation gate was cut short.
	ErrorInterrupted = errors.New("interrupted")

	ErrorInternal = errors.New("internal error")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrorNotFound, "NotFound"},
	{ErrorAlreadyExists, "AlreadyExists"},
	{ErrorInvalidName, "InvalidName"},
	{ErrorQuotaExceeded, "QuotaExceeded"},
	{ErrorLimitExceeded, "LimitExceeded"},
	{ErrorAlreadyOpen, "AlreadyOpen"},
	{ErrorNotOpen, "NotOpen"},
	{ErrorTargetUserNotFound, "TargetUserNotFound"},
	{ErrorInvalidCredentials, "InvalidCredentials"},
	{ErrorUserLimitReached, "UserLimitReached"},
	{ErrorDuplicateUsername, "DuplicateUsername"},
	{ErrorInterrupted, "Interrupted"},
}

// Kind returns the tag of the taxonomy error wrapped by err.
// It returns "" for nil and "Internal" for errors outside the taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
