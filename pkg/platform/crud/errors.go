package crud

import (
	"errors"

	dErrors "credstore/pkg/domain-errors"
	"credstore/pkg/platform/sentinel"
)

// Messages surfaced in the {"error": ...} body.
const (
	MsgNotFound     = "Id not found"
	MsgInUse        = "Resource is still referenced"
	MsgInternal     = "Error"
	MsgCreateFailed = "Error creating object"
	MsgInvalidBody  = "Invalid request body"
)

// TranslateError maps a store error to a domain error. internalMsg is used
// when the failure is neither a missing row nor a reference violation.
func TranslateError(err error, internalMsg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, MsgNotFound)
	case errors.Is(err, sentinel.ErrInUse):
		return dErrors.Wrap(err, dErrors.CodeConflict, MsgInUse)
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, MsgInvalidBody)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
	}
}
