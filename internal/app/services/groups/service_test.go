package groups

import (
	"context"
	"errors"
	"testing"
	"time"

	domaingroup "esocial/internal/domain/group"
	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/memory"
)

const (
	creator = domainuser.ID("creator")
	member  = domainuser.ID("member")
)

func newGroupsService(t *testing.T) *Service {
	t.Helper()
	now := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	return &Service{
		Groups: memory.NewGroupRepository(),
		Outbox: memory.NewOutbox(),
		Now:    func() time.Time { return now },
	}
}

func createGroup(t *testing.T, svc *Service, private bool) *domaingroup.Group {
	t.Helper()
	grp, err := svc.Create(context.Background(), CreateParams{
		Name:        "Algorithms study circle",
		Description: "Weekly problem sessions",
		CreatorID:   creator,
		Private:     private,
		Category:    domaingroup.CategoryStudy,
		University:  "Baku State University",
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return grp
}

func TestCreateMakesCreatorMemberAndAdmin(t *testing.T) {
	svc := newGroupsService(t)
	grp := createGroup(t, svc, false)

	if !grp.IsMember(creator) || !grp.IsAdmin(creator) {
		t.Fatal("creator must start as member and admin")
	}
	if grp.InviteCode != "" {
		t.Fatalf("public groups have no invite code, got %q", grp.InviteCode)
	}

	private := createGroup(t, svc, true)
	if private.InviteCode == "" {
		t.Fatal("private groups need an invite code")
	}
}

func TestJoinPublicGroup(t *testing.T) {
	svc := newGroupsService(t)
	grp := createGroup(t, svc, false)

	joined, err := svc.Join(context.Background(), member, grp.ID, "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !joined.IsMember(member) {
		t.Fatal("member missing after join")
	}

	if _, err := svc.Join(context.Background(), member, grp.ID, ""); !errors.Is(err, domaingroup.ErrAlreadyMember) {
		t.Fatalf("second join: got %v", err)
	}
}

func TestJoinPrivateGroupChecksInviteCode(t *testing.T) {
	svc := newGroupsService(t)
	grp := createGroup(t, svc, true)

	if _, err := svc.Join(context.Background(), member, grp.ID, "wrong"); !errors.Is(err, domaingroup.ErrInviteCodeMismatch) {
		t.Fatalf("wrong code: got %v", err)
	}
	if _, err := svc.Join(context.Background(), member, grp.ID, grp.InviteCode); err != nil {
		t.Fatalf("join with code: %v", err)
	}
}

func TestLeaveRules(t *testing.T) {
	svc := newGroupsService(t)
	grp := createGroup(t, svc, false)
	if _, err := svc.Join(context.Background(), member, grp.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Leave(context.Background(), creator, grp.ID); !errors.Is(err, domaingroup.ErrCreatorCannotLeave) {
		t.Fatalf("creator leave: got %v", err)
	}
	if err := svc.Leave(context.Background(), "stranger", grp.ID); !errors.Is(err, domaingroup.ErrNotMember) {
		t.Fatalf("stranger leave: got %v", err)
	}
	if err := svc.Leave(context.Background(), member, grp.ID); err != nil {
		t.Fatalf("member leave: %v", err)
	}

	reloaded, err := svc.ByID(context.Background(), grp.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.IsMember(member) {
		t.Fatal("member should be gone after leaving")
	}
}

func TestUpdateAndRotateAreAdminOnly(t *testing.T) {
	svc := newGroupsService(t)
	grp := createGroup(t, svc, true)
	if _, err := svc.Join(context.Background(), member, grp.ID, grp.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}

	name := "Renamed circle"
	if _, err := svc.Update(context.Background(), member, grp.ID, domaingroup.UpdateParams{Name: name}); !errors.Is(err, domaingroup.ErrNotAdmin) {
		t.Fatalf("member update: got %v", err)
	}
	updated, err := svc.Update(context.Background(), creator, grp.ID, domaingroup.UpdateParams{Name: name})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("name not applied, got %q", updated.Name)
	}

	if _, err := svc.RotateInviteCode(context.Background(), member, grp.ID); !errors.Is(err, domaingroup.ErrNotAdmin) {
		t.Fatalf("member rotate: got %v", err)
	}
	code, err := svc.RotateInviteCode(context.Background(), creator, grp.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if code == "" || code == grp.InviteCode {
		t.Fatalf("expected a fresh invite code, got %q", code)
	}
}

func TestInviteCodesAreUppercaseAlphanumeric(t *testing.T) {
	svc := newGroupsService(t)
	grp := createGroup(t, svc, true)

	rotated, err := svc.RotateInviteCode(context.Background(), creator, grp.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}

	for _, code := range []string{grp.InviteCode, rotated} {
		if len(code) != 8 {
			t.Fatalf("invite code %q should have 8 characters", code)
		}
		for _, r := range code {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				t.Fatalf("invite code %q contains %q outside A-Z0-9", code, r)
			}
		}
	}
}

func TestListFiltersByMembership(t *testing.T) {
	svc := newGroupsService(t)
	grp := createGroup(t, svc, false)
	createGroup(t, svc, false)

	if _, err := svc.Join(context.Background(), member, grp.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	mine, info, err := svc.List(context.Background(), domaingroup.ListFilter{MemberID: member}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != grp.ID {
		t.Fatalf("expected only the joined group, got %d", len(mine))
	}
	if info.Total != 1 {
		t.Fatalf("total = %d, want 1", info.Total)
	}
}
