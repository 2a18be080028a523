package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"groupchat/auth"
	"groupchat/domain"
	"groupchat/errors"
	"groupchat/mocks"
)

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-never-in-prod", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTokenManager())

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice"
		password := "ComplexPass123!" // Must satisfy the complexity rules
		expected := domain.User{ID: 1, Username: username}

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(username, gomock.Not(password)).
			Return(expected, nil).
			Times(1)

		token, identity, err := svc.Register(username, password)

		req.NoError(err)
		req.NotEmpty(token)
		req.Equal(expected.Identity(), identity)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		token, _, err := svc.Register("alice", "simple")

		req.Error(err)
		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("duplicate", gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, _, err := svc.Register("duplicate", "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTokenManager())

	password := "ComplexPass123!"
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	stored := domain.User{ID: 1, Username: "alice", PasswordHash: hash}

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetUserByName("alice").Return(stored, nil).Times(1)

		token, identity, err := svc.Login("alice", password)

		req.NoError(err)
		req.NotEmpty(token)
		req.Equal(stored.Identity(), identity)
	})

	t.Run("should return generic error for wrong password", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetUserByName("alice").Return(stored, nil).Times(1)

		_, _, err := svc.Login("alice", "WrongPass123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return the same generic error for unknown user", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetUserByName("ghost").Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, _, err := svc.Login("ghost", password)

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}

func TestAuthService_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTokenManager())
	stored := domain.User{ID: 1, Username: "alice"}

	t.Run("should resolve a token issued by Login", func(t *testing.T) {
		req := require.New(t)
		password := "ComplexPass123!"
		hash, err := auth.HashPassword(password)
		req.NoError(err)
		withHash := stored
		withHash.PasswordHash = hash

		mockRepo.EXPECT().GetUserByName("alice").Return(withHash, nil).Times(1)
		mockRepo.EXPECT().GetUser(domain.UserID(1)).Return(stored, nil).Times(1)

		token, _, err := svc.Login("alice", password)
		req.NoError(err)

		identity, err := svc.Resolve(string(token))
		req.NoError(err)
		req.Equal(stored.Identity(), identity)
	})

	t.Run("should reject garbage tokens", func(t *testing.T) {
		req := require.New(t)

		_, err := svc.Resolve("not-a-jwt")
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("should reject tokens for deleted accounts", func(t *testing.T) {
		req := require.New(t)
		password := "ComplexPass123!"
		hash, err := auth.HashPassword(password)
		req.NoError(err)
		withHash := stored
		withHash.PasswordHash = hash

		mockRepo.EXPECT().GetUserByName("alice").Return(withHash, nil).Times(1)
		mockRepo.EXPECT().GetUser(domain.UserID(1)).Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		token, _, err := svc.Login("alice", password)
		req.NoError(err)

		_, err = svc.Resolve(string(token))
		req.ErrorIs(err, errors.ErrInvalidToken)
	})
}

func TestAuthService_IdentityForName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTokenManager())

	t.Run("should create a guest account on first use", func(t *testing.T) {
		req := require.New(t)
		stored := domain.User{ID: 2, Username: "bob"}

		mockRepo.EXPECT().GetOrCreateUser("bob").Return(stored, nil).Times(1)

		identity, err := svc.IdentityForName("bob")
		req.NoError(err)
		req.Equal(stored.Identity(), identity)
	})

	t.Run("should reject an empty display name", func(t *testing.T) {
		req := require.New(t)

		_, err := svc.IdentityForName("")
		req.ErrorIs(err, errors.ErrEmptyDisplayName)
	})
}
