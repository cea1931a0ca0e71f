package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "esocial/internal/domain/auth"
	domainuser "esocial/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrTokenInvalid       = errors.New("auth: token is invalid or expired")
	ErrNotVerified        = errors.New("auth: email not verified")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// Mailer delivers account emails. Implementations must not block on slow
// upstreams longer than the context allows.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

type Service struct {
	Users           domainuser.Repository
	Sessions        domainauth.SessionStore
	Passwords       PasswordHasher
	Tokens          TokenGenerator
	Mail            Mailer
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	RequireEduEmail bool
	// RequireVerified gates login on a confirmed email address. Off in dev,
	// where accounts are verified at registration.
	RequireVerified bool
	Logger          *slog.Logger
	Now             func() time.Time
}

type RegisterParams struct {
	Email        string
	FirstName    string
	LastName     string
	Password     string
	Role         domainuser.Role
	University   string
	Faculty      string
	Major        string
	StudentGroup string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

// Register creates an account, opens a session and emails a verification
// token. Registration succeeds even when the verification mail cannot be
// delivered; the token can be re-requested later. When verification is not
// required the account is verified immediately and no mail is sent.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:              domainuser.ID(uuid.NewString()),
		Email:           params.Email,
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		PasswordHash:    hash,
		Role:            params.Role,
		University:      params.University,
		Faculty:         params.Faculty,
		Major:           params.Major,
		StudentGroup:    params.StudentGroup,
		RequireEduEmail: s.RequireEduEmail,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	verification := ""
	if s.RequireVerified {
		verification, err = s.Tokens.NewToken()
		if err != nil {
			return nil, err
		}
		user.GrantVerification(verification, now.Add(s.verificationTTL()), now)
	} else {
		user.MarkVerified(now)
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if verification != "" {
		s.sendVerification(ctx, user.Email, verification)
	}
	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials, flips the user online and opens a session.
func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.RequireVerified && !user.Verified {
		return nil, ErrNotVerified
	}
	user.SetPresence(true, s.now())
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Logout drops the session and records the user as offline.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		if errors.Is(err, domainauth.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := s.Sessions.Delete(ctx, session.Token); err != nil {
		return err
	}
	if user, err := s.Users.ByID(ctx, session.UserID); err == nil {
		user.SetPresence(false, s.now())
		if err := s.Users.Save(ctx, user); err != nil && s.Logger != nil {
			s.Logger.Warn("presence update failed on logout", "user_id", user.ID, "error", err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("session terminated", "user_id", session.UserID)
	}
	return nil
}

// VerifyEmail consumes an outstanding verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}
	user, err := s.Users.ByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	now := s.now()
	if !user.Verification.Active(now) {
		return nil, ErrTokenInvalid
	}
	// MarkVerified clears the grant, so a consumed token no longer resolves
	// and a second verify attempt reports it invalid.
	user.MarkVerified(now)
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("email verified", "user_id", user.ID)
	}
	return user, nil
}

// ForgotPassword issues a reset token and emails it. Unknown addresses are
// reported as success so the endpoint cannot be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domainuser.ErrEmailRequired
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil
		}
		return err
	}
	token, err := s.Tokens.NewToken()
	if err != nil {
		return err
	}
	now := s.now()
	user.GrantPasswordReset(token, now.Add(s.resetTTL()), now)
	if err := s.Users.Save(ctx, user); err != nil {
		return err
	}
	if s.Mail != nil {
		if err := s.Mail.SendPasswordReset(ctx, user.Email, token); err != nil && s.Logger != nil {
			s.Logger.Warn("reset mail failed", "user_id", user.ID, "error", err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("password reset requested", "user_id", user.ID)
	}
	return nil
}

// ResetPassword consumes a reset token, replaces the password and revokes
// every open session for the account.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenInvalid
	}
	if err := s.validatePassword(password); err != nil {
		return err
	}
	user, err := s.Users.ByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	now := s.now()
	if !user.PasswordRst.Active(now) {
		return ErrTokenInvalid
	}
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return err
	}
	if err := user.SetPasswordHash(hash, now); err != nil {
		return err
	}
	user.ClearPasswordReset(now)
	if err := s.Users.Save(ctx, user); err != nil {
		return err
	}
	if err := s.Sessions.DeleteByUser(ctx, user.ID); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("password reset", "user_id", user.ID)
	}
	return nil
}

// ResolveToken maps a bearer token to its user, dropping sessions whose
// account no longer exists.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &ResolveResult{User: user, Session: session}, nil
}

func (s *Service) issueSession(ctx context.Context, user *domainuser.User) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: user.ID,
		Role:   user.Role,
		TTL:    s.sessionTTL(),
		Now:    s.now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sendVerification(ctx context.Context, email, token string) {
	if s.Mail == nil {
		return
	}
	if err := s.Mail.SendVerification(ctx, email, token); err != nil && s.Logger != nil {
		s.Logger.Warn("verification mail failed", "email", email, "error", err)
	}
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) verificationTTL() time.Duration {
	if s.VerificationTTL > 0 {
		return s.VerificationTTL
	}
	return 24 * time.Hour
}

func (s *Service) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return time.Hour
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
