package auth

import (
	"errors"
	"net/http"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

const adminClaim = "admin"

var errNotAdmin = errors.New("caller is not an admin")

// Authenticate verifies the Firebase ID token carried in the request's
// Authorization header and returns the decoded token.
func Authenticate(req *http.Request) (*auth.Token, error) {
	ctx := req.Context()
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, err
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	jwtToken, err := bearerTokenFromRequest(req)
	if err != nil {
		return nil, err
	}
	return client.VerifyIDToken(ctx, jwtToken)
}

// AuthenticateAdmin verifies the ID token and additionally requires the
// admin custom claim. Used by the manual wipe endpoint.
func AuthenticateAdmin(req *http.Request) (*auth.Token, error) {
	token, err := Authenticate(req)
	if err != nil {
		return nil, err
	}
	if admin, ok := token.Claims[adminClaim].(bool); !ok || !admin {
		return nil, errNotAdmin
	}
	return token, nil
}

// IsNotAdmin reports whether err is the missing-admin-claim error, so handlers
// can answer 403 instead of 401.
func IsNotAdmin(err error) bool {
	return errors.Is(err, errNotAdmin)
}
