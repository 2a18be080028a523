package services

import (
	"fmt"

	"groupchat/auth"
	"groupchat/domain"
	"groupchat/errors"
	"groupchat/repositories"
)

type Token string

type IAuthService interface {
	Register(username, password string) (Token, domain.Identity, error)
	Login(username, password string) (Token, domain.Identity, error)
	Resolve(token string) (domain.Identity, error)
	IdentityForName(displayName string) (domain.Identity, error)
}

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(username, password string) (Token, domain.Identity, error) {
	valReq := auth.RegisterRequest{Username: username, Password: password}

	// Business rules first, before any expensive cryptographic work.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer so the repository never
	// sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(username, hashedPassword)
	if err != nil {
		return "", domain.Identity{}, err
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return "", domain.Identity{}, errors.ErrTokenGeneration
	}
	return Token(token), user.Identity(), nil
}

func (s *AuthService) Login(username, password string) (Token, domain.Identity, error) {
	user, err := s.users.GetUserByName(username)
	if err != nil {
		// Generic error to prevent user enumeration.
		return "", domain.Identity{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.Identity{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return "", domain.Identity{}, errors.ErrTokenGeneration
	}
	return Token(token), user.Identity(), nil
}

// Resolve turns an opaque token back into an identity. Failure means
// "fall back to display-name login", never a hard reject.
func (s *AuthService) Resolve(token string) (domain.Identity, error) {
	identity, err := s.tokens.Resolve(token)
	if err != nil {
		return domain.Identity{}, err
	}
	// The account may have been created on another run of the server;
	// trust the store, not the token, for the canonical record.
	user, err := s.users.GetUser(identity.UserID)
	if err != nil {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	return user.Identity(), nil
}

// IdentityForName backs the unauthenticated join path: the first
// connection to use a display name creates its passwordless account.
func (s *AuthService) IdentityForName(displayName string) (domain.Identity, error) {
	if displayName == "" {
		return domain.Identity{}, errors.ErrEmptyDisplayName
	}
	user, err := s.users.GetOrCreateUser(displayName)
	if err != nil {
		return domain.Identity{}, err
	}
	return user.Identity(), nil
}
