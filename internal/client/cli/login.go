package cli

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/labsync/internal/client/auth"
)

// RunLogin открывает сессию и сохраняет токены на устройстве
func (c *Cli) RunLogin(ctx context.Context, username string, passwords Passwords) error {
	if c.auth == nil {
		return errUnavailable
	}
	c.io.Println("=== Login ===")

	username, err := c.readRequired(username, "Username: ")
	if err != nil {
		return err
	}
	password, err := c.getPassword(ctx, passwords)
	if err != nil {
		return err
	}

	session, err := c.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Session expires: %s\n", time.Unix(session.ExpiresAt, 0).UTC().Format(time.RFC3339))
	return nil
}

// RunLogout закрывает сессию устройства; all - все сессии пользователя
func (c *Cli) RunLogout(ctx context.Context, all bool) error {
	if c.auth == nil {
		return errUnavailable
	}
	if err := c.auth.Logout(ctx, all); err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			c.io.Println("Not logged in.")
			return nil
		}
		return err
	}
	if all {
		c.io.Println("✓ Logged out from all devices.")
	} else {
		c.io.Println("✓ Logged out.")
	}
	return nil
}
