package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophsession/internal/common"
)

// Prompt indirections used to facilitate testing.
var (
	promptText        = PromptText
	promptRequired    = PromptRequired
	promptPassword    = PromptPassword
	promptNewPassword = PromptNewPassword
)

// Register prompts for email, password and names and creates an account.
// The server logs the new account in right away.
func (a *App) Register(ctx context.Context) error {
	email, err := promptRequired(a.reader, "Email", a.out)
	if err != nil {
		return err
	}

	password, err := promptNewPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	firstName, err := promptText(a.reader, "First name (optional)", a.out)
	if err != nil {
		return err
	}
	lastName, err := promptText(a.reader, "Last name (optional)", a.out)
	if err != nil {
		return err
	}

	u, err := a.api.Register(ctx, email, password, firstName, lastName)
	if err != nil {
		return err
	}

	a.email = u.Email
	fmt.Fprintf(a.out, "Registered %s (%s)\n", u.Email, u.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := promptRequired(a.reader, "Email", a.out)
	if err != nil {
		return err
	}

	password, err := promptPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.email = u.Email
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", u.Email, u.Role)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	u, err := a.api.Refresh(ctx)
	if err != nil {
		return err
	}
	a.email = u.Email
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	a.email = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	c, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id:     %s\nemail:  %s\nrole:   %s\ntenant: %s\nname:   %s %s\n",
		c.Subject, c.Email, c.Role, c.Tenant, c.FirstName, c.LastName)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.api.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Server is up")
	return nil
}
