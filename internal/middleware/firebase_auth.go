package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// IDTokenVerifier checks Firebase ID tokens. *auth.Client implements it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// verifyFirebaseToken returns the Firebase UID behind idToken.
func verifyFirebaseToken(ctx context.Context, verifier IDTokenVerifier, idToken string) (string, error) {
	token, err := verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

// FirebaseUID returns the UID of the Firebase ID token sent as a bearer
// token, or "" when the request carries no Authorization header. A header
// that is present but cannot be verified is a 401.
func FirebaseUID(c echo.Context, verifier IDTokenVerifier) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	if verifier == nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Firebase sign-in is not enabled")
	}
	uid, err := verifyFirebaseToken(c.Request().Context(), verifier, strings.TrimSpace(parts[1]))
	if err != nil || uid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired Firebase ID token")
	}
	return uid, nil
}
