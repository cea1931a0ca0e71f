package users

import (
	"context"
	"errors"
	"testing"
	"time"

	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/memory"
)

type usersFixture struct {
	svc   *Service
	users *memory.UserRepository
	clock *time.Time
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()
	start := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	clock := &start
	users := memory.NewUserRepository()
	svc := &Service{
		Users:  users,
		Search: users,
		Now:    func() time.Time { return *clock },
	}
	return &usersFixture{svc: svc, users: users, clock: clock}
}

func (f *usersFixture) seed(t *testing.T, id domainuser.ID, first, last string, role domainuser.Role) {
	t.Helper()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           id,
		Email:        string(id) + "@bsu.edu.az",
		FirstName:    first,
		LastName:     last,
		PasswordHash: "hash",
		Role:         role,
		University:   "Baku State University",
		CreatedAt:    *f.clock,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	if err := f.users.Save(context.Background(), user); err != nil {
		t.Fatalf("save user %s: %v", id, err)
	}
}

func strPtr(s string) *string { return &s }

func TestUpdateProfileAppliesOnlyProvidedFields(t *testing.T) {
	f := newUsersFixture(t)
	f.seed(t, "u1", "Leyla", "Aliyeva", domainuser.RoleStudent)

	updated, err := f.svc.UpdateProfile(context.Background(), "u1", UpdateProfileParams{
		Bio:   strPtr("Third-year CS student"),
		Major: strPtr("Computer Science"),
		SocialLinks: []domainuser.SocialLink{
			{Platform: "github", URL: "https://github.com/leyla"},
			{Platform: "", URL: "https://dropped.example"},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Bio != "Third-year CS student" || updated.Major != "Computer Science" {
		t.Fatalf("fields not applied: %q %q", updated.Bio, updated.Major)
	}
	if updated.FirstName != "Leyla" {
		t.Fatalf("untouched field changed: %q", updated.FirstName)
	}
	if len(updated.SocialLinks) != 1 || updated.SocialLinks[0].Platform != "github" {
		t.Fatalf("social links: %+v", updated.SocialLinks)
	}

	if _, err := f.svc.UpdateProfile(context.Background(), "u1", UpdateProfileParams{FirstName: strPtr("  ")}); !errors.Is(err, domainuser.ErrNameRequired) {
		t.Fatalf("blank name: got %v", err)
	}
	if _, err := f.svc.UpdateProfile(context.Background(), "ghost", UpdateProfileParams{}); !errors.Is(err, domainuser.ErrNotFound) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestSetPresenceRecordsHeartbeat(t *testing.T) {
	f := newUsersFixture(t)
	f.seed(t, "u1", "Leyla", "Aliyeva", domainuser.RoleStudent)
	*f.clock = f.clock.Add(time.Hour)

	if err := f.svc.SetPresence(context.Background(), "u1", true); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	user, err := f.svc.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !user.Online || !user.LastSeen.Equal(*f.clock) {
		t.Fatalf("presence: online=%v lastSeen=%v", user.Online, user.LastSeen)
	}

	if err := f.svc.SetPresence(context.Background(), "u1", false); err != nil {
		t.Fatalf("offline: %v", err)
	}
	user, _ = f.svc.Profile(context.Background(), "u1")
	if user.Online {
		t.Fatal("user should be offline")
	}
}

func TestSearchDirectoryOrdersAndPaginates(t *testing.T) {
	f := newUsersFixture(t)
	f.seed(t, "u1", "Leyla", "Aliyeva", domainuser.RoleStudent)
	f.seed(t, "u2", "Rashad", "Mammadov", domainuser.RoleTeacher)
	f.seed(t, "u3", "Aysel", "Hasanova", domainuser.RoleStudent)

	all, info, err := f.svc.SearchDirectory(context.Background(), domainuser.SearchFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 3 || info.Total != 3 {
		t.Fatalf("got %d results, total %d", len(all), info.Total)
	}
	if all[0].LastName != "Aliyeva" || all[1].LastName != "Hasanova" || all[2].LastName != "Mammadov" {
		t.Fatalf("unexpected order: %s %s %s", all[0].LastName, all[1].LastName, all[2].LastName)
	}

	teachers, _, err := f.svc.SearchDirectory(context.Background(), domainuser.SearchFilter{Role: domainuser.RoleTeacher}, 1, 10)
	if err != nil {
		t.Fatalf("role search: %v", err)
	}
	if len(teachers) != 1 || teachers[0].ID != "u2" {
		t.Fatalf("role filter: %+v", teachers)
	}

	page2, info, err := f.svc.SearchDirectory(context.Background(), domainuser.SearchFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2) != 1 || info.Pages != 2 || info.Current != 2 {
		t.Fatalf("page 2: %d items, info %+v", len(page2), info)
	}

	if _, _, err := f.svc.SearchDirectory(context.Background(), domainuser.SearchFilter{}, -1, 10); err == nil {
		t.Fatal("negative page should be rejected")
	}
}
