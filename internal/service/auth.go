// Package service contains the business logic layer: handlers parse HTTP and
// delegate here; repositories do the SQL. Services validate, enforce the
// domain rules, and return apperror values the HTTP layer translates.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// Login-flow failure classes. The callback handler maps each to the error
// code it appends to the client redirect, so they must stay distinguishable
// through the wrap chain.
var (
	ErrUpdateFailed          = errors.New("profile update failed")
	ErrProfileCreationFailed = errors.New("profile creation failed")
	ErrAuthCreationFailed    = errors.New("auth identity creation failed")
)

// AuthService resolves a remote 42 identity onto exactly one local account
// and issues session credentials.
type AuthService struct {
	accounts   repository.AccountRepository
	identities repository.AuthIdentityRepository
	tokens     *auth.TokenService
	logger     *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	identities repository.AuthIdentityRepository,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:   accounts,
		identities: identities,
		tokens:     tokens,
		logger:     logger,
	}
}

// AuthResult bundles the resolved account and the issued credential so the
// handler can set the cookie and build the redirect in one step.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// accountResolver is one branch of the resolution chain. It returns
// (nil, nil) when its lookup key matches nothing, handing over to the next
// branch.
type accountResolver struct {
	name    string
	resolve func(ctx context.Context, user *auth.FortyTwoUser) (*model.Account, error)
}

// LoginWithIntra maps a fetched 42 identity onto exactly one local account
// and issues a session credential.
//
// RESOLUTION PRECEDENCE (each branch tried only if the previous found
// nothing):
//  1. by intra numeric id — the normal repeat-login path
//  2. by recorded email — merges a pre-existing account by backfilling the
//     intra id onto the same row
//  3. create — makes the auth identity (or reuses one a partial login left
//     behind) and the account; a failed account insert deletes the identity
//     it just created, leaving no orphan
//
// Every branch refreshes the mutable profile fields from the provider, so
// local data stays fresh without a manual re-sync.
func (s *AuthService) LoginWithIntra(ctx context.Context, user *auth.FortyTwoUser) (*AuthResult, error) {
	if user == nil {
		return nil, fmt.Errorf("service/auth: intra user must not be nil")
	}

	resolvers := []accountResolver{
		{name: "intra-id", resolve: s.resolveByIntraID},
		{name: "email-merge", resolve: s.resolveByEmail},
		{name: "create", resolve: s.createAccount},
	}

	var account *model.Account
	for _, r := range resolvers {
		resolved, err := r.resolve(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("service/auth: resolving account via %s (intraID=%d): %w",
				r.name, user.ID, err)
		}
		if resolved != nil {
			account = resolved
			s.logger.Info("account resolved",
				slog.String("branch", r.name),
				slog.String("accountID", account.ID),
				slog.String("login", account.Login),
			)
			break
		}
	}
	if account == nil {
		// The create branch never returns (nil, nil); this is unreachable
		// unless a resolver is miswired.
		return nil, fmt.Errorf("service/auth: no resolver produced an account (intraID=%d)", user.ID)
	}

	token, err := s.tokens.Generate(account.ID, account.Login, account.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating session token for %s: %w", account.ID, err)
	}

	return &AuthResult{Account: account, Token: token}, nil
}

// resolveByIntraID handles the repeat-login path.
func (s *AuthService) resolveByIntraID(ctx context.Context, user *auth.FortyTwoUser) (*model.Account, error) {
	account, err := s.accounts.GetByIntraID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	applyProfile(account, user)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return account, nil
}

// resolveByEmail merges onto an account that predates the 42 link: same
// email, no intra id yet. The intra id is backfilled onto that row so the
// next login takes the primary branch.
func (s *AuthService) resolveByEmail(ctx context.Context, user *auth.FortyTwoUser) (*model.Account, error) {
	if user.Email == "" {
		return nil, nil
	}
	account, err := s.accounts.GetByEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	account.IntraID = user.ID
	applyProfile(account, user)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return account, nil
}

// createAccount is the terminal branch: a brand-new identity.
//
// The account row carries a foreign key to the auth-identity store, so the
// identity comes first. An identity left behind by an earlier partial login
// is reused rather than treated as an error. If the account insert then
// fails, the identity created here is deleted again — cleanup-on-failure so
// no auth identity exists without a profile.
func (s *AuthService) createAccount(ctx context.Context, user *auth.FortyTwoUser) (*model.Account, error) {
	identity, err := s.identities.GetByEmail(ctx, user.Email)
	createdIdentity := false
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrAuthCreationFailed, err)
		}
		identity = &model.AuthIdentity{Email: user.Email}
		if err := s.identities.Create(ctx, identity); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthCreationFailed, err)
		}
		createdIdentity = true
	}

	account := &model.Account{
		ID:      identity.ID,
		IntraID: user.ID,
		Login:   user.Login,
		Email:   user.Email,
		Role:    model.RoleUser,
	}
	applyProfile(account, user)

	if err := s.accounts.Create(ctx, account); err != nil {
		if createdIdentity {
			if cleanupErr := s.identities.Delete(ctx, identity.ID); cleanupErr != nil {
				s.logger.Error("failed to clean up auth identity after account creation failure",
					slog.String("identityID", identity.ID),
					slog.String("error", cleanupErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrProfileCreationFailed, err)
	}

	return account, nil
}

// applyProfile copies the mutable remote-sourced fields onto the account.
// Role and internal id are never touched; the avatar keeps its old value
// when the provider sends none.
func applyProfile(account *model.Account, user *auth.FortyTwoUser) {
	account.Login = user.Login
	if user.Email != "" {
		account.Email = user.Email
	}
	account.DisplayName = user.DisplayName()
	if user.Image.Link != "" {
		account.AvatarURL = user.Image.Link
	}
	if campus := user.CampusName(); campus != "" {
		account.Campus = campus
	}
}

// GetAccountByID returns the account for an internal id. Used by the whoami
// handler after the middleware validates the credential.
func (s *AuthService) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "account ID is required")
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return account, nil
}
