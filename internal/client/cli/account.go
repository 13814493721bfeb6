package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) readCredentials() (string, string, error) {
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", "", fmt.Errorf("failed to read username: %w", err)
	}
	if c.Password != "" {
		return username, c.Password, nil
	}
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}
	return username, password, nil
}

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	username, password, err := c.readCredentials()
	if err != nil {
		return err
	}

	resp, err := c.Auth.Register(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", resp.UserID)
	c.io.Println("Run 'rentsync login' to start a session.")
	return nil
}

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, password, err := c.readCredentials()
	if err != nil {
		return err
	}

	session, err := c.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Session expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.Auth.Logout(ctx); err != nil {
		return err
	}

	stats, err := c.Queue.Stats(ctx)
	c.io.Println("✓ Logged out")
	if err == nil && stats.Pending > 0 {
		c.io.Printf("%d change(s) stay queued and will be sent after the next login.\n", stats.Pending)
	}
	return nil
}
