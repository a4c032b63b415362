package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/carvault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter user name", os.Stdout)
	if err != nil {
		return "", nil, err
	}
	if userName == "" {
		return "", nil, fmt.Errorf("%w: empty user name", common.ErrorValidation)
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// Register prompts for a user name and password and creates the account at
// the identity provider. It does not log in.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			printlnFn("User already exists")
		}
		return err
	}

	printlnFn("Success!")
	return nil
}

// Login prompts for credentials and starts a delegated session. The
// previous session survives a failed attempt. After a successful login the
// store is pinged once so the prompt shows the right mode straight away.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, userName, password); err != nil {
		printlnFn("Login unsuccessful")
		return err
	}

	printlnFn("Login successful")
	a.refreshMode(ctx)
	return nil
}

// Logout forgets the delegation and starts an anonymous record.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints the user name and principal of the current session.
func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.authService.GetPrincipal(ctx)
	if err != nil || !a.authService.IsAuthenticated(ctx) {
		printlnFn("Not logged in")
		return nil
	}
	printlnFn(fmt.Sprintf("%s (%s)", a.authService.Username(), p))
	return nil
}
