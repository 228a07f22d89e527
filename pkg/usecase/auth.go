package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

// DefaultTokenIssuer is the iss claim of session tokens
const DefaultTokenIssuer = "deadline-guardian"

// AuthUseCaseInterface resolves the caller of an API request
type AuthUseCaseInterface interface {
	// Authenticate maps a bearer token to a registered user
	Authenticate(ctx context.Context, token string) (*model.User, error)
	IsNoAuthn() bool
}

// AuthUseCase verifies HS256 session tokens whose sub claim is a user id
type AuthUseCase struct {
	repo   interfaces.Repository
	secret []byte
	issuer string
	clock  func() time.Time
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

func WithTokenIssuer(issuer string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.issuer = issuer
	}
}

// WithAuthClock replaces time.Now for token issuing and expiry checks
func WithAuthClock(clock func() time.Time) AuthOption {
	return func(uc *AuthUseCase) {
		uc.clock = clock
	}
}

func NewAuthUseCase(repo interfaces.Repository, secret []byte, options ...AuthOption) *AuthUseCase {
	uc := &AuthUseCase{
		repo:   repo,
		secret: secret,
		issuer: DefaultTokenIssuer,
		clock:  time.Now,
	}

	for _, opt := range options {
		opt(uc)
	}

	return uc
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// IssueToken signs a session token for userID valid for ttl
func (uc *AuthUseCase) IssueToken(userID model.UserID, ttl time.Duration) (string, error) {
	now := uc.clock()
	token, err := jwt.NewBuilder().
		Issuer(uc.issuer).
		Subject(userID.String()).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(ttl)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build session token", goerr.V(UserIDKey, userID))
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, uc.secret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign session token", goerr.V(UserIDKey, userID))
	}
	return string(signed), nil
}

func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "no session token")
	}

	// Allow 10 seconds of clock skew between issuer and verifier
	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, uc.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(uc.issuer),
		jwt.WithClock(jwt.ClockFunc(uc.clock)),
		jwt.WithAcceptableSkew(10*time.Second),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidToken, "failed to verify session token", goerr.V("reason", err.Error()))
	}

	userID := model.UserID(parsed.Subject())
	if userID == "" {
		return nil, goerr.Wrap(ErrInvalidToken, "sub claim not found in token")
	}

	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrUnauthenticated, "token subject is not a registered user", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to load user", goerr.V(UserIDKey, userID))
	}
	return user, nil
}

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	repo   interfaces.Repository
	userID model.UserID
}

func NewNoAuthnUseCase(repo interfaces.Repository, userID model.UserID) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		repo:   repo,
		userID: userID,
	}
}

// Authenticate ignores the token and returns the configured user. An unregistered
// user id yields a user with only the id set.
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, token string) (*model.User, error) {
	user, err := uc.repo.User().Get(ctx, uc.userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return &model.User{ID: uc.userID}, nil
		}
		return nil, goerr.Wrap(err, "failed to load user", goerr.V(UserIDKey, uc.userID))
	}
	return user, nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
