package mail

import (
	"fmt"

	"travel_auth/internal/models"
)

const (
	PurposeVerification = "email_verification"
	PurposeReset        = "password_reset"
)

// VerificationMessage builds the mail-queue message carrying an
// email-verification link for the given signed token.
func VerificationMessage(clientURL, email, tok string) models.Message {
	return models.Message{
		Email:   email,
		Link:    fmt.Sprintf("%s/verify-email.html?token=%s", clientURL, tok),
		Purpose: PurposeVerification,
	}
}

// ResetMessage builds the mail-queue message carrying a password-reset link.
func ResetMessage(clientURL, email, tok string) models.Message {
	return models.Message{
		Email:   email,
		Link:    fmt.Sprintf("%s/reset.html?token=%s", clientURL, tok),
		Purpose: PurposeReset,
	}
}
