package cli

import (
	"context"
	"fmt"
	"os"
)

// Login prompts for a username and password and opens the vault. When no
// local vault file exists, the full vault is downloaded from the remote
// service instead.
func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword("Password", os.Stdout)
	if err != nil {
		return err
	}

	if !a.session.VaultExists(username) {
		fmt.Println("No local vault found, downloading from server...")
		if err := a.session.DownloadVault(ctx, username, password); err != nil {
			fmt.Println("Download failed:", err)
			return err
		}
		fmt.Println("Vault downloaded, logged in")
		return nil
	}

	if err := a.session.LogIn(ctx, username, password); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}
	fmt.Println("Logged in")
	return nil
}

// SignUp creates a new account: a local vault plus remote enrollment with
// two recovery questions.
func (a *App) SignUp(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword("Password", os.Stdout)
	if err != nil {
		return err
	}
	q1, err := GetSimpleText(a.reader, "Recovery question 1", os.Stdout)
	if err != nil {
		return err
	}
	a1, err := GetSimpleText(a.reader, "Answer 1", os.Stdout)
	if err != nil {
		return err
	}
	q2, err := GetSimpleText(a.reader, "Recovery question 2", os.Stdout)
	if err != nil {
		return err
	}
	a2, err := GetSimpleText(a.reader, "Answer 2", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.SignUp(ctx, username, password, q1, a1, q2, a2); err != nil {
		fmt.Println("Sign-up failed:", err)
		return err
	}
	fmt.Println("Account created, logged in")
	return nil
}

// Forgot runs the password recovery flow: answer both questions, then set
// a new password.
func (a *App) Forgot(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}

	q1, q2, err := a.session.RecoveryQuestions(ctx, username)
	if err != nil {
		fmt.Println("Could not fetch recovery questions:", err)
		return err
	}

	a1, err := GetSimpleText(a.reader, q1, os.Stdout)
	if err != nil {
		return err
	}
	a2, err := GetSimpleText(a.reader, q2, os.Stdout)
	if err != nil {
		return err
	}
	newPassword, err := GetPassword("New password", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.ForgotPassword(ctx, username, newPassword, a1, a2); err != nil {
		fmt.Println("Recovery failed:", err)
		return err
	}
	fmt.Println("Password changed, you can now log in")
	return nil
}

// Logout syncs and locks the vault.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.LogOut(ctx); err != nil {
		fmt.Println("Logout failed:", err)
		return err
	}
	fmt.Println("Logged out")
	return nil
}
