package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/repository"
)

// usernames and passwords are 4-9 alphanumeric characters; anything
// else is rejected before touching storage.
var credentialPattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,9}$`)

var errUnexpectedSigningMethod = errors.New("unexpected token signing method")

type AuthService interface {
	Authenticate(ctx context.Context, username, password string, isSignup bool) (*entity.User, error)
	IssueToken(username string) (string, error)
	ParseToken(token string) (string, error)
}

type userRepo interface {
	Save(ctx context.Context, user *entity.User) error
	Find(ctx context.Context, username string) (*entity.User, error)
}

type authService struct {
	secretKey string
	users     userRepo
}

func NewAuthService(secretKey string, users userRepo) AuthService {
	return &authService{
		secretKey: secretKey,
		users:     users,
	}
}

// Authenticate resolves a username/password pair to an authenticated
// identity, creating the account first when isSignup is set.
func (that *authService) Authenticate(ctx context.Context, username, password string, isSignup bool) (*entity.User, error) {
	if !credentialPattern.MatchString(username) || !credentialPattern.MatchString(password) {
		return nil, apperror.ErrInvalidCredentialsFormat
	}

	if isSignup {
		return that.signup(ctx, username, password)
	}

	return that.login(ctx, username, password)
}

func (that *authService) signup(ctx context.Context, username, password string) (*entity.User, error) {
	_, err := that.users.Find(ctx, username)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUserAlreadyExists, username)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Username:     username,
		PasswordHash: string(hash),
	}

	if err = that.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	return user, nil
}

func (that *authService) login(ctx context.Context, username, password string) (*entity.User, error) {
	user, err := that.users.Find(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	return user, nil
}

func (that *authService) IssueToken(username string) (string, error) {
	claims := jwt.MapClaims{}
	claims["username"] = username
	claims["exp"] = time.Now().Add(time.Hour * 24).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ParseToken verifies a token and returns the username it carries.
func (that *authService) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedSigningMethod, token.Header["alg"])
		}

		return []byte(that.secretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperror.ErrInvalidCredentials
	}

	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", apperror.ErrInvalidCredentials
	}

	return username, nil
}
