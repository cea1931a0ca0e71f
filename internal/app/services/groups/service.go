// Package groups implements community groups: creation, discovery, and the
// join and leave flows including invite-code entry to private groups.
package groups

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "esocial/internal/app/outbox"
	"esocial/internal/app/pagination"
	domaingroup "esocial/internal/domain/group"
	"esocial/internal/domain/shared/events"
	domainuser "esocial/internal/domain/user"
)

// DefaultListLimit is the group discovery page size.
const DefaultListLimit = 20

type Service struct {
	Groups  domaingroup.Repository
	Outbox  appoutbox.Outbox
	Encoder appoutbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

type CreateParams struct {
	Name        string
	Description string
	CreatorID   domainuser.ID
	Private     bool
	Category    domaingroup.Category
	University  string
	Faculty     string
}

// Create opens a group with the creator as its first member and admin.
// Private groups get a generated invite code.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domaingroup.Group, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	invite := ""
	if params.Private {
		code, err := newInviteCode()
		if err != nil {
			return nil, err
		}
		invite = code
	}
	grp, err := domaingroup.NewGroup(domaingroup.CreateParams{
		ID:          domaingroup.ID(uuid.NewString()),
		Name:        params.Name,
		Description: params.Description,
		CreatorID:   params.CreatorID,
		Private:     params.Private,
		InviteCode:  invite,
		Category:    params.Category,
		University:  params.University,
		Faculty:     params.Faculty,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Groups.Save(ctx, grp); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("group created", "group_id", grp.ID, "creator_id", grp.CreatorID, "private", grp.Private)
	}
	return grp, nil
}

func (s *Service) ByID(ctx context.Context, id domaingroup.ID) (*domaingroup.Group, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.Groups.ByID(ctx, id)
}

// List pages through active groups under the filter.
func (s *Service) List(ctx context.Context, filter domaingroup.ListFilter, page, limit int) ([]domaingroup.Group, pagination.PageInfo, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	params, err := pagination.New(page, limit, DefaultListLimit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	groups, total, err := s.Groups.List(ctx, filter, params.Offset(), params.Limit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return groups, params.Info(total), nil
}

// Update edits group settings. Admin-only.
func (s *Service) Update(ctx context.Context, actorID domainuser.ID, id domaingroup.ID, params domaingroup.UpdateParams) (*domaingroup.Group, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	grp, err := s.Groups.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !grp.IsAdmin(actorID) {
		return nil, domaingroup.ErrNotAdmin
	}
	if err := grp.Update(params, s.now()); err != nil {
		return nil, err
	}
	if err := s.Groups.Save(ctx, grp); err != nil {
		return nil, err
	}
	return grp, nil
}

// Join adds the actor to the group. Private groups require the invite code.
func (s *Service) Join(ctx context.Context, actorID domainuser.ID, id domaingroup.ID, inviteCode string) (*domaingroup.Group, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	grp, err := s.Groups.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if grp.Private && grp.InviteCode != inviteCode {
		return nil, domaingroup.ErrInviteCodeMismatch
	}
	if err := s.Groups.AddMember(ctx, id, actorID); err != nil {
		return nil, err
	}
	s.record(ctx, events.GroupMemberJoined{
		BaseEvent: events.NewBase("group.member_joined", string(id), s.now()),
		GroupID:   string(id),
		MemberID:  string(actorID),
	})
	if s.Logger != nil {
		s.Logger.Info("group joined", "group_id", id, "member_id", actorID)
	}
	return s.Groups.ByID(ctx, id)
}

// Leave removes the actor from the group. The creator cannot leave.
func (s *Service) Leave(ctx context.Context, actorID domainuser.ID, id domaingroup.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	grp, err := s.Groups.ByID(ctx, id)
	if err != nil {
		return err
	}
	if grp.CreatorID == actorID {
		return domaingroup.ErrCreatorCannotLeave
	}
	if !grp.IsMember(actorID) {
		return domaingroup.ErrNotMember
	}
	return s.Groups.RemoveMember(ctx, id, actorID)
}

// RotateInviteCode issues a fresh code for a private group. Admin-only.
func (s *Service) RotateInviteCode(ctx context.Context, actorID domainuser.ID, id domaingroup.ID) (string, error) {
	if err := s.ensureDependencies(); err != nil {
		return "", err
	}
	grp, err := s.Groups.ByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !grp.IsAdmin(actorID) {
		return "", domaingroup.ErrNotAdmin
	}
	code, err := newInviteCode()
	if err != nil {
		return "", err
	}
	grp.InviteCode = code
	grp.UpdatedAt = s.now()
	if err := s.Groups.Save(ctx, grp); err != nil {
		return "", err
	}
	return code, nil
}

const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}

func (s *Service) record(ctx context.Context, ev events.DomainEvent) {
	if err := appoutbox.Record(ctx, s.Outbox, s.Encoder, ev); err != nil && s.Logger != nil {
		s.Logger.Warn("event record failed", "event", ev.EventName(), "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) ensureDependencies() error {
	if s.Groups == nil {
		return errors.New("groups: group repository required")
	}
	return nil
}
