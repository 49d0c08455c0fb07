package rest

import (
	"errors"
	"fmt"
)

// Error is an error descriptor returned by the portal, either for a whole
// call or for one batch item.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	// Status is the HTTP status of the response that carried the error.
	// Zero for batch items.
	Status int `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Description != "" && e.Code != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	case e.Code != "":
		return e.Code
	case e.Description != "":
		return e.Description
	default:
		return fmt.Sprintf("portal error (status %d)", e.Status)
	}
}

// Error codes the portal returns for throttled and unauthorised requests,
// for use with IsCode.
const (
	CodeQueryLimitExceeded = "QUERY_LIMIT_EXCEEDED"
	CodeInvalidToken       = "invalid_token"
)

// IsCode reports whether err carries a portal error with the given code.
func IsCode(err error, code string) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}
