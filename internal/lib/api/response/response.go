package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusUnauthorized = "unauthorized"
)

// Machine-readable codes clients branch on.
const (
	CodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
	CodeTooManyAttempts  = "TOO_MANY_ATTEMPTS"
	CodeInvalidToken     = "INVALID_OR_EXPIRED_TOKEN"
	CodeDuplicateEmail   = "DUPLICATE_EMAIL"
)

type Response struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func OK() Response {
	return Response{Status: StatusSuccess}
}

func Error(msg string) Response {
	return Response{Status: StatusError, Message: msg}
}

func ErrorCode(msg, code string) Response {
	return Response{Status: StatusError, Code: code, Message: msg}
}

func Unauthorized(msg string) Response {
	return Response{Status: StatusUnauthorized, Message: msg}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is required", err.Field()))
		case "email":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid email", err.Field()))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return Error(strings.Join(errMsgs, ", "))
}
