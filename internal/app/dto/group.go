package dto

import (
	"time"

	"esocial/internal/app/pagination"
	domaingroup "esocial/internal/domain/group"
	domainuser "esocial/internal/domain/user"
)

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	MemberCount int       `json:"member_count"`
	IsMember    bool      `json:"is_member"`
	IsAdmin     bool      `json:"is_admin"`
	Private     bool      `json:"private"`
	Category    string    `json:"category"`
	University  string    `json:"university,omitempty"`
	Faculty     string    `json:"faculty,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GroupList struct {
	Groups     []Group             `json:"groups"`
	Pagination pagination.PageInfo `json:"pagination"`
}

// MapGroup renders a group for the given viewer. The invite code is never
// exposed through listings; admins fetch it via the rotate endpoint.
func MapGroup(g *domaingroup.Group, viewer domainuser.ID) Group {
	if g == nil {
		return Group{}
	}
	return Group{
		ID:          string(g.ID),
		Name:        g.Name,
		Description: g.Description,
		CreatorID:   string(g.CreatorID),
		MemberCount: g.MemberCount(),
		IsMember:    g.IsMember(viewer),
		IsAdmin:     g.IsAdmin(viewer),
		Private:     g.Private,
		Category:    string(g.Category),
		University:  g.University,
		Faculty:     g.Faculty,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func NewGroupList(groups []domaingroup.Group, viewer domainuser.ID, info pagination.PageInfo) GroupList {
	out := GroupList{Groups: make([]Group, 0, len(groups)), Pagination: info}
	for i := range groups {
		out.Groups = append(out.Groups, MapGroup(&groups[i], viewer))
	}
	return out
}
