package errors

import (
	stderrors "errors"

	"github.com/mezonai/blockworker/jsonx"
)

// MasterErrorCode represents standardized error codes of the worker/master protocol
type MasterErrorCode string

const (
	// General errors
	ErrCodeInternal MasterErrorCode = "internal_error"

	// Validation errors
	ErrCodeInvalidRequest  MasterErrorCode = "invalid_request"
	ErrCodeInvalidWorkerID MasterErrorCode = "invalid_worker_id"
	ErrCodeInvalidLocation MasterErrorCode = "invalid_location"

	// Protocol errors
	ErrCodeUnknownWorker MasterErrorCode = "unknown_worker"
	ErrCodeUnavailable   MasterErrorCode = "unavailable"
)

// Error message constants
const (
	ErrMsgInvalidRequest  = "Request format is invalid"
	ErrMsgInvalidWorkerID = "Worker id must not be empty"
	ErrMsgInvalidLocation = "Store location must name a tier and a directory"
	ErrMsgUnknownWorker   = "Worker is not registered with this master"
	ErrMsgUnavailable     = "Master is not accepting workers"
	ErrMsgInternal        = "Master error, please retry"
)

// MasterError is a coded error carried between worker and master
type MasterError struct {
	Code    MasterErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *MasterError) Error() string {
	return jsonx.MarshalToString(MasterError{
		Code:    e.Code,
		Message: e.Message,
	})
}

// NewError creates a new MasterError and returns it as error interface
func NewError(code MasterErrorCode, message string) error {
	return &MasterError{
		Code:    code,
		Message: message,
	}
}

// Parse decodes the text produced by MasterError.Error. ok is false for any other text.
func Parse(text string) (*MasterError, bool) {
	var e MasterError
	if err := jsonx.Unmarshal([]byte(text), &e); err != nil || e.Code == "" {
		return nil, false
	}
	return &e, true
}

// CodeOf returns the code of a MasterError found in err's chain, or ErrCodeInternal.
func CodeOf(err error) MasterErrorCode {
	var me *MasterError
	if stderrors.As(err, &me) {
		return me.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code MasterErrorCode) bool {
	var me *MasterError
	return stderrors.As(err, &me) && me.Code == code
}
