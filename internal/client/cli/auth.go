package cli

import (
	"context"
	"errors"
	"time"
)

var errEmptyUsername = errors.New("username must not be empty")

// Register prompts for a username, an optional email and a password, and
// creates an account. The new account is signed in on success.
func (a *App) Register(ctx context.Context, _ []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	if username == "" {
		return errEmptyUsername
	}

	email, err := getSimpleText(a.reader, "Enter email (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	fields := map[string]string{"username": username, "password": string(password)}
	if email != "" {
		fields["email"] = email
	}

	user, err := a.session.Register(ctx, fields)
	if err != nil {
		return err
	}

	a.printf("Registered and signed in as %s\n", user.Username)
	return nil
}

// Login prompts for credentials. A rejected login leaves any existing
// session as it was and reports the remote message.
func (a *App) Login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		var err error
		if username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
			return err
		}
	}
	if username == "" {
		return errEmptyUsername
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	user, err := a.session.Login(ctx, username, string(password))
	if err != nil {
		return err
	}

	a.printf("Signed in as %s\n", user.Username)
	return nil
}

// Logout forgets the stored session and the opened book. It cannot fail.
func (a *App) Logout(ctx context.Context, _ []string) error {
	a.session.Logout(ctx)
	a.opened = nil
	a.printf("Signed out\n")
	return nil
}

// WhoAmI prints the stored identity and when its access token expires.
func (a *App) WhoAmI(ctx context.Context, _ []string) error {
	u := a.session.CurrentUser(ctx)
	if u == nil {
		a.printf("Not signed in\n")
		return nil
	}

	a.printf("%s (id %d)", u.Username, u.ID)
	if u.Email != "" {
		a.printf(" <%s>", u.Email)
	}
	a.printf("\n")

	if exp, ok := a.session.AccessTokenExpiry(ctx); ok {
		if left := time.Until(exp); left > 0 {
			a.printf("Access token expires in %s\n", left.Round(time.Second))
		} else {
			a.printf("Access token expired at %s, use 'refresh'\n", exp.Local().Format(time.DateTime))
		}
	}
	return nil
}

// Refresh trades the refresh token for a new access token.
func (a *App) Refresh(ctx context.Context, _ []string) error {
	if err := a.session.Refresh(ctx); err != nil {
		return err
	}
	a.printf("Access token refreshed\n")
	return nil
}
