// Package services contains the Melvin client's application services:
// authentication, conversations, chat dispatch, preferences, the admin
// queue, profiles, card lookup and transcript export. Every network call
// goes through the client gateway; session state lives in package session.
package services

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"unicode/utf8"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/session"
)

// RequestSubmitted is the status shown after a successful account request.
const RequestSubmitted = "Request submitted. Please wait for approval and try logging in later."

const (
	minUsername = 3
	maxUsername = 40
	minPassword = 12
)

var passwordRules = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z]`),
	regexp.MustCompile(`[a-z]`),
	regexp.MustCompile(`[0-9]`),
	regexp.MustCompile("[!@#$%^&*(),.?\":{}|<>\\[\\]\\-_;'+=/~`]"),
}

// AuthService defines the account and login flows.
//
// Contract:
//   - RequestAccount: validate locally, then submit a sign-up request.
//   - Login: exchange credentials for a token and begin a session.
//   - Logout: end the session without a notice.
//   - Restore: resume a session persisted by a previous run.
type AuthService interface {
	RequestAccount(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
}

type authService struct {
	client  client.Client
	session *session.Session
}

func NewAuthService(c client.Client, sess *session.Session) AuthService {
	return &authService{client: c, session: sess}
}

// ValidateAccountRequest applies the backend's username and password rules.
func ValidateAccountRequest(username, password string) error {
	if n := utf8.RuneCountInString(username); n < minUsername || n > maxUsername {
		return ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < minPassword {
		return ErrWeakPassword
	}
	for _, re := range passwordRules {
		if !re.MatchString(password) {
			return ErrWeakPassword
		}
	}
	return nil
}

func (a *authService) RequestAccount(ctx context.Context, username, password string) error {
	if err := ValidateAccountRequest(username, password); err != nil {
		return err
	}

	var out models.AccountRequest
	err := a.client.Do(ctx, client.Call{
		Method: http.MethodPost,
		Path:   "/auth/request",
		Body:   models.Credentials{Username: username, Password: password},
		Public: true,
	}, &out)
	if err != nil {
		return fmt.Errorf("request account: %w", err)
	}
	return nil
}

func (a *authService) Login(ctx context.Context, username, password string) error {
	var tok models.TokenResponse
	err := a.client.Do(ctx, client.Call{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   models.Credentials{Username: username, Password: password},
		Public: true,
	}, &tok)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("login: empty access token")
	}

	if _, err := a.session.Begin(ctx, tok.AccessToken); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.session.Reset(ctx)
}

func (a *authService) Restore(ctx context.Context) (bool, error) {
	return a.session.Restore(ctx)
}
