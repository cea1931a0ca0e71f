package posts

import (
	"context"
	"errors"
	"testing"
	"time"

	domaingroup "esocial/internal/domain/group"
	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/memory"
)

const (
	author   = domainuser.ID("author")
	reader   = domainuser.ID("reader")
	stranger = domainuser.ID("stranger")
)

type postsFixture struct {
	svc    *Service
	groups *memory.GroupRepository
	roles  map[domainuser.ID]domainuser.Role
	clock  *time.Time
}

func newPostsFixture(t *testing.T) *postsFixture {
	t.Helper()
	start := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	clock := &start
	roles := map[domainuser.ID]domainuser.Role{
		author: domainuser.RoleStudent,
		reader: domainuser.RoleStudent,
	}
	groups := memory.NewGroupRepository()
	svc := &Service{
		Posts: memory.NewPostRepository(func(id domainuser.ID) (domainuser.Role, bool) {
			role, ok := roles[id]
			return role, ok
		}),
		Comments: memory.NewCommentRepository(),
		Groups:   groups,
		Outbox:   memory.NewOutbox(),
		Now:      func() time.Time { return *clock },
	}
	return &postsFixture{svc: svc, groups: groups, roles: roles, clock: clock}
}

func (f *postsFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *postsFixture) publish(t *testing.T, by domainuser.ID, content, groupID string) *domainpost.Post {
	t.Helper()
	post, err := f.svc.Create(context.Background(), CreateParams{
		AuthorID: by,
		Content:  content,
		GroupID:  groupID,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	f.advance(time.Minute)
	return post
}

func (f *postsFixture) newGroup(t *testing.T, private bool, members ...domainuser.ID) *domaingroup.Group {
	t.Helper()
	invite := ""
	if private {
		invite = "STUDY123"
	}
	grp, err := domaingroup.NewGroup(domaingroup.CreateParams{
		ID:          domaingroup.ID("grp-1"),
		Name:        "Algorithms study circle",
		Description: "Weekly problem sessions",
		CreatorID:   author,
		Private:     private,
		InviteCode:  invite,
		Category:    domaingroup.CategoryStudy,
		CreatedAt:   *f.clock,
	})
	if err != nil {
		t.Fatalf("new group: %v", err)
	}
	if err := f.groups.Save(context.Background(), grp); err != nil {
		t.Fatalf("save group: %v", err)
	}
	for _, m := range members {
		if err := f.groups.AddMember(context.Background(), grp.ID, m); err != nil {
			t.Fatalf("add member %s: %v", m, err)
		}
	}
	return grp
}

func TestToggleLikeFlipsMembership(t *testing.T) {
	f := newPostsFixture(t)
	post := f.publish(t, author, "hello feed", "")

	liked, count, err := f.svc.ToggleLike(context.Background(), reader, post.ID)
	if err != nil || !liked || count != 1 {
		t.Fatalf("first like: liked=%v count=%d err=%v", liked, count, err)
	}
	liked, count, err = f.svc.ToggleLike(context.Background(), author, post.ID)
	if err != nil || !liked || count != 2 {
		t.Fatalf("second user like: liked=%v count=%d err=%v", liked, count, err)
	}
	liked, count, err = f.svc.ToggleLike(context.Background(), reader, post.ID)
	if err != nil || liked || count != 1 {
		t.Fatalf("unlike: liked=%v count=%d err=%v", liked, count, err)
	}

	if _, _, err := f.svc.ToggleLike(context.Background(), reader, "missing"); !errors.Is(err, domainpost.ErrNotFound) {
		t.Fatalf("missing post: got %v", err)
	}
}

func TestToggleRepostFlipsMembership(t *testing.T) {
	f := newPostsFixture(t)
	post := f.publish(t, author, "worth sharing", "")

	reposted, count, err := f.svc.ToggleRepost(context.Background(), reader, post.ID)
	if err != nil || !reposted || count != 1 {
		t.Fatalf("repost: reposted=%v count=%d err=%v", reposted, count, err)
	}
	reposted, count, err = f.svc.ToggleRepost(context.Background(), reader, post.ID)
	if err != nil || reposted || count != 0 {
		t.Fatalf("undo repost: reposted=%v count=%d err=%v", reposted, count, err)
	}
}

func TestCreateInGroupRequiresMembership(t *testing.T) {
	f := newPostsFixture(t)
	grp := f.newGroup(t, false)

	_, err := f.svc.Create(context.Background(), CreateParams{
		AuthorID: stranger,
		Content:  "hi all",
		GroupID:  string(grp.ID),
	})
	if !errors.Is(err, domaingroup.ErrNotMember) {
		t.Fatalf("non-member post: got %v", err)
	}

	post := f.publish(t, author, "hi all", string(grp.ID))
	if post.GroupID != string(grp.ID) {
		t.Fatalf("post group = %q, want %q", post.GroupID, grp.ID)
	}
}

func TestFeedHidesPrivateGroupFromNonMembers(t *testing.T) {
	f := newPostsFixture(t)
	grp := f.newGroup(t, true, reader)
	f.publish(t, reader, "internal plans", string(grp.ID))

	filter := domainpost.ListFilter{GroupID: string(grp.ID)}
	if _, _, err := f.svc.Feed(context.Background(), stranger, filter, 1, 10); !errors.Is(err, domaingroup.ErrNotMember) {
		t.Fatalf("non-member feed: got %v", err)
	}

	posts, info, err := f.svc.Feed(context.Background(), reader, filter, 1, 10)
	if err != nil {
		t.Fatalf("member feed: %v", err)
	}
	if len(posts) != 1 || info.Total != 1 {
		t.Fatalf("member feed: got %d posts, total %d", len(posts), info.Total)
	}
}

func TestFeedPublicGroupIsOpen(t *testing.T) {
	f := newPostsFixture(t)
	grp := f.newGroup(t, false)
	f.publish(t, author, "open house", string(grp.ID))

	posts, _, err := f.svc.Feed(context.Background(), stranger, domainpost.ListFilter{GroupID: string(grp.ID)}, 1, 10)
	if err != nil {
		t.Fatalf("public group feed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected the group post, got %d", len(posts))
	}
}

func TestUpdateAndDeleteAuthorRules(t *testing.T) {
	f := newPostsFixture(t)
	post := f.publish(t, author, "first draft", "")

	if _, err := f.svc.UpdateContent(context.Background(), reader, post.ID, "hijack"); !errors.Is(err, domainpost.ErrNotAuthor) {
		t.Fatalf("non-author update: got %v", err)
	}
	updated, err := f.svc.UpdateContent(context.Background(), author, post.ID, "second draft")
	if err != nil {
		t.Fatalf("author update: %v", err)
	}
	if updated.Content != "second draft" {
		t.Fatalf("content = %q", updated.Content)
	}

	if err := f.svc.Delete(context.Background(), reader, domainuser.RoleStudent, post.ID); !errors.Is(err, domainpost.ErrNotAuthor) {
		t.Fatalf("non-author delete: got %v", err)
	}
	if err := f.svc.Delete(context.Background(), reader, domainuser.RoleAdmin, post.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := f.svc.ByID(context.Background(), post.ID); !errors.Is(err, domainpost.ErrNotFound) {
		t.Fatalf("deleted post lookup: got %v", err)
	}
}

func TestCommentsNestOneLevel(t *testing.T) {
	f := newPostsFixture(t)
	post := f.publish(t, author, "discuss", "")

	top, err := f.svc.AddComment(context.Background(), reader, post.ID, "top level", "")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	reply, err := f.svc.AddComment(context.Background(), author, post.ID, "a reply", top.ID)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.ParentID != top.ID {
		t.Fatalf("reply parent = %q, want %q", reply.ParentID, top.ID)
	}

	// Replying to a reply attaches to its top-level parent.
	deep, err := f.svc.AddComment(context.Background(), reader, post.ID, "deeper", reply.ID)
	if err != nil {
		t.Fatalf("deep reply: %v", err)
	}
	if deep.ParentID != top.ID {
		t.Fatalf("deep reply parent = %q, want %q", deep.ParentID, top.ID)
	}

	views, _, err := f.svc.CommentsForPost(context.Background(), post.ID, 1, 10)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(views) != 1 || len(views[0].Replies) != 2 {
		t.Fatalf("got %d top-level comments, %d replies", len(views), len(views[0].Replies))
	}

	reloaded, err := f.svc.ByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.CommentsCount != 3 {
		t.Fatalf("comments count = %d, want 3", reloaded.CommentsCount)
	}

	other := f.publish(t, author, "other thread", "")
	if _, err := f.svc.AddComment(context.Background(), reader, other.ID, "wrong thread", top.ID); !errors.Is(err, domainpost.ErrParentComment) {
		t.Fatalf("cross-post reply: got %v", err)
	}
}
