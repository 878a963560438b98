package cli

import (
	"context"

	"github.com/iudanet/labsync/internal/client/auth"
)

// RegisterInput параметры регистрации
type RegisterInput struct {
	Username    string
	DisplayName string
	Color       string
	Passwords   Passwords
}

// RunRegister регистрирует пользователя на сервере
func (c *Cli) RunRegister(ctx context.Context, in RegisterInput) error {
	if c.auth == nil {
		return errUnavailable
	}
	c.io.Println("=== Registration ===")

	username, err := c.readRequired(in.Username, "Username: ")
	if err != nil {
		return err
	}
	password, err := c.getPassword(ctx, in.Passwords)
	if err != nil {
		return err
	}

	res, err := c.auth.Register(ctx, auth.RegisterParams{
		Username:    username,
		Password:    password,
		DisplayName: in.DisplayName,
		Color:       in.Color,
	})
	if err != nil {
		return err
	}

	c.io.Println("✓ Registration successful!")
	c.io.Printf("Username: %s\n", res.Username)
	c.io.Printf("User ID:  %s\n", res.UserID)
	c.io.Println("Run 'labsync login' to start syncing.")
	return nil
}
