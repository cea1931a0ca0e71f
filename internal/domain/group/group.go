package group

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"esocial/internal/domain/user"
)

var (
	ErrIDRequired          = errors.New("group: id is required")
	ErrNameRequired        = errors.New("group: name is required")
	ErrNameTooLong         = errors.New("group: name exceeds 100 characters")
	ErrDescriptionRequired = errors.New("group: description is required")
	ErrDescriptionTooLong  = errors.New("group: description exceeds 500 characters")
	ErrCreatorRequired     = errors.New("group: creator is required")
	ErrInvalidCategory     = errors.New("group: invalid category")
	ErrNotFound            = errors.New("group: not found")
	ErrNotAdmin            = errors.New("group: admin access required")
	ErrNotMember           = errors.New("group: membership required")
	ErrAlreadyMember       = errors.New("group: already a member")
	ErrInviteCodeMismatch  = errors.New("group: invalid invite code")
	ErrCreatorCannotLeave  = errors.New("group: the creator cannot leave the group")
)

type ID string

type Category string

const (
	CategoryAcademic   Category = "academic"
	CategorySocial     Category = "social"
	CategoryMentorship Category = "mentorship"
	CategoryStudy      Category = "study"
	CategoryOther      Category = "other"
)

type Group struct {
	ID          ID
	Name        string
	Description string
	CreatorID   user.ID
	Members     []user.ID
	Admins      []user.ID
	Private     bool
	InviteCode  string
	Category    Category
	University  string
	Faculty     string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateParams struct {
	ID          ID
	Name        string
	Description string
	CreatorID   user.ID
	Private     bool
	InviteCode  string
	Category    Category
	University  string
	Faculty     string
	CreatedAt   time.Time
}

func NewGroup(params CreateParams) (*Group, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(name) > 100 {
		return nil, ErrNameTooLong
	}
	description := strings.TrimSpace(params.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	if utf8.RuneCountInString(description) > 500 {
		return nil, ErrDescriptionTooLong
	}
	creator := user.ID(strings.TrimSpace(string(params.CreatorID)))
	if creator == "" {
		return nil, ErrCreatorRequired
	}
	category := params.Category
	if category == "" {
		category = CategoryOther
	}
	switch category {
	case CategoryAcademic, CategorySocial, CategoryMentorship, CategoryStudy, CategoryOther:
	default:
		return nil, ErrInvalidCategory
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Group{
		ID:          ID(id),
		Name:        name,
		Description: description,
		CreatorID:   creator,
		Members:     []user.ID{creator},
		Admins:      []user.ID{creator},
		Private:     params.Private,
		InviteCode:  strings.TrimSpace(params.InviteCode),
		Category:    category,
		University:  strings.TrimSpace(params.University),
		Faculty:     strings.TrimSpace(params.Faculty),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (g *Group) IsMember(id user.ID) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}

func (g *Group) IsAdmin(id user.ID) bool {
	for _, a := range g.Admins {
		if a == id {
			return true
		}
	}
	return false
}

func (g *Group) MemberCount() int {
	return len(g.Members)
}

type UpdateParams struct {
	Name        string
	Description string
	Category    Category
	Private     *bool
}

func (g *Group) Update(params UpdateParams, now time.Time) error {
	if params.Name != "" {
		name := strings.TrimSpace(params.Name)
		if utf8.RuneCountInString(name) > 100 {
			return ErrNameTooLong
		}
		g.Name = name
	}
	if params.Description != "" {
		description := strings.TrimSpace(params.Description)
		if utf8.RuneCountInString(description) > 500 {
			return ErrDescriptionTooLong
		}
		g.Description = description
	}
	if params.Category != "" {
		switch params.Category {
		case CategoryAcademic, CategorySocial, CategoryMentorship, CategoryStudy, CategoryOther:
			g.Category = params.Category
		default:
			return ErrInvalidCategory
		}
	}
	if params.Private != nil {
		g.Private = *params.Private
	}
	if now.IsZero() {
		now = time.Now()
	}
	g.UpdatedAt = now.UTC()
	return nil
}

// ListFilter narrows group discovery. Zero values mean "no constraint".
type ListFilter struct {
	Category   Category
	University string
	MemberID   user.ID
}

type Repository interface {
	Save(ctx context.Context, g *Group) error
	ByID(ctx context.Context, id ID) (*Group, error)
	// List returns active groups newest-first, sliced by offset/limit,
	// plus the total match count.
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]Group, int, error)
	// AddMember atomically adds the user to the member set. Returns
	// ErrAlreadyMember when the user is already present.
	AddMember(ctx context.Context, id ID, member user.ID) error
	// RemoveMember atomically removes the user from members and admins.
	RemoveMember(ctx context.Context, id ID, member user.ID) error
}
