package cli

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/common"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

// Register prompts for a username and password and creates the account.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.messenger.Register(ctx, userName, password); err != nil {
		printlnFn("Registration failed:", explain(err))
		return err
	}

	printlnFn("Registered. You can log in now.")
	return nil
}

// Login prompts for credentials and authenticates the session.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.messenger.Login(ctx, userName, password); err != nil {
		printlnFn("Login failed:", explain(err))
		return err
	}

	printlnFn("Logged in as", userName)
	return nil
}

// Logout ends the session. The local inbox is kept.
func (a *App) Logout(ctx context.Context) error {
	if err := a.messenger.Logout(ctx); err != nil {
		printlnFn("Logout failed:", explain(err))
		return err
	}
	printlnFn("Logged out")
	return nil
}
