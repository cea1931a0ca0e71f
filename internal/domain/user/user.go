package user

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrEmailNotEducational = errors.New("user: email must belong to an educational institution")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: first and last name are required")
	ErrUniversityRequired  = errors.New("user: university is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrBioTooLong          = errors.New("user: bio exceeds 500 characters")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

const maxBioLength = 500

// User is a member of the platform: the account record plus the directory
// fields (name, avatar, presence) other subsystems read.
type User struct {
	ID           ID
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	University   string
	Faculty      string
	Major        string
	StudentGroup string
	AvatarURL    string
	Bio          string
	SocialLinks  []SocialLink
	Verified     bool
	Verification TokenGrant
	PasswordRst  TokenGrant
	Online       bool
	LastSeen     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SocialLink struct {
	Platform string
	URL      string
}

// TokenGrant is a one-shot token with an expiry, used for email verification
// and password resets. Zero value means no outstanding grant.
type TokenGrant struct {
	Token     string
	ExpiresAt time.Time
}

func (g TokenGrant) Active(at time.Time) bool {
	return g.Token != "" && g.ExpiresAt.After(at.UTC())
}

// Snapshot is the read-only directory view other subsystems consume.
type Snapshot struct {
	ID        ID
	FirstName string
	LastName  string
	AvatarURL string
	Online    bool
	LastSeen  time.Time
}

func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		Online:    u.Online,
		LastSeen:  u.LastSeen,
	}
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByVerificationToken(ctx context.Context, token string) (*User, error)
	ByPasswordResetToken(ctx context.Context, token string) (*User, error)
	Save(ctx context.Context, user *User) error
}

// Directory is the narrow lookup interface the messaging core depends on.
type Directory interface {
	ByID(ctx context.Context, id ID) (*User, error)
}

type SearchFilter struct {
	Query      string
	Role       Role
	University string
}

// Searcher lists directory users matching a filter.
type Searcher interface {
	Search(ctx context.Context, filter SearchFilter) ([]User, error)
}

type CreateParams struct {
	ID              ID
	Email           string
	FirstName       string
	LastName        string
	PasswordHash    string
	Role            Role
	University      string
	Faculty         string
	Major           string
	StudentGroup    string
	RequireEduEmail bool
	CreatedAt       time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if params.RequireEduEmail && !IsEducationalEmail(email) {
		return nil, ErrEmailNotEducational
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	first := strings.TrimSpace(params.FirstName)
	last := strings.TrimSpace(params.LastName)
	if first == "" || last == "" {
		return nil, ErrNameRequired
	}
	university := strings.TrimSpace(params.University)
	if university == "" {
		return nil, ErrUniversityRequired
	}
	role, err := normalizeRole(params.Role)
	if err != nil {
		return nil, err
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:           ID(id),
		Email:        email,
		FirstName:    first,
		LastName:     last,
		PasswordHash: params.PasswordHash,
		Role:         role,
		University:   university,
		Faculty:      strings.TrimSpace(params.Faculty),
		Major:        strings.TrimSpace(params.Major),
		StudentGroup: strings.TrimSpace(params.StudentGroup),
		LastSeen:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) HasRole(role Role) bool {
	return u.Role == role
}

func (u *User) UpdateBio(bio string, now time.Time) error {
	if utf8.RuneCountInString(bio) > maxBioLength {
		return ErrBioTooLong
	}
	u.Bio = bio
	u.touch(now)
	return nil
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

// GrantVerification issues an email-verification token valid until the deadline.
func (u *User) GrantVerification(token string, expiresAt, now time.Time) {
	u.Verification = TokenGrant{Token: token, ExpiresAt: expiresAt.UTC()}
	u.touch(now)
}

// MarkVerified consumes the verification grant.
func (u *User) MarkVerified(now time.Time) {
	u.Verified = true
	u.Verification = TokenGrant{}
	u.touch(now)
}

// GrantPasswordReset issues a reset token valid until the deadline.
func (u *User) GrantPasswordReset(token string, expiresAt, now time.Time) {
	u.PasswordRst = TokenGrant{Token: token, ExpiresAt: expiresAt.UTC()}
	u.touch(now)
}

// ClearPasswordReset consumes the reset grant.
func (u *User) ClearPasswordReset(now time.Time) {
	u.PasswordRst = TokenGrant{}
	u.touch(now)
}

// SetPresence records online state plus last-seen. Presence is advisory:
// readers must tolerate stale values.
func (u *User) SetPresence(online bool, now time.Time) {
	u.Online = online
	if now.IsZero() {
		now = time.Now()
	}
	u.LastSeen = now.UTC()
	u.touch(now)
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func normalizeRole(role Role) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(string(role)))) {
	case "":
		return RoleStudent, nil
	case RoleStudent:
		return RoleStudent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEducationalEmail reports whether the address belongs to an academic
// domain. The check is deliberately loose: a handful of country-specific
// suffixes plus the common edu/ac markers.
func IsEducationalEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	suffixes := []string{
		".edu", ".edu.az", ".edu.tr", ".edu.au", ".ac.uk", ".edu.sg",
		".edu.ca", ".edu.mx", ".edu.br", ".edu.in", ".ac.jp", ".ac.za",
	}
	for _, s := range suffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	return strings.Contains(domain, "edu") ||
		strings.Contains(domain, "student") ||
		strings.Contains(domain, "university")
}
