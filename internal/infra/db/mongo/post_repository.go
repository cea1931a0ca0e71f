package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
)

type PostRepository struct {
	col *mongo.Collection
	// RoleFor resolves an author's role for role-filtered feeds. Optional.
	RoleFor func(ctx context.Context, id domainuser.ID) (domainuser.Role, bool)
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	col := db.Collection("posts")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "deleted", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &PostRepository{col: col}
}

func (r *PostRepository) Save(ctx context.Context, p *domainpost.Post) error {
	if p == nil {
		return domainpost.ErrIDRequired
	}
	doc := newPostDocument(p)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *PostRepository) ByID(ctx context.Context, id domainpost.ID) (*domainpost.Post, error) {
	var doc postDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "deleted": false}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpost.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PostRepository) List(ctx context.Context, filter domainpost.ListFilter, offset, limit int) ([]domainpost.Post, int, error) {
	query := bson.M{"deleted": false}
	if filter.Type != "" {
		query["type"] = string(filter.Type)
	}
	if filter.AuthorID != "" {
		query["author_id"] = string(filter.AuthorID)
	}
	if filter.GroupID != "" {
		query["group_id"] = filter.GroupID
	}
	if filter.MentorshipOnly {
		query["is_mentorship_post"] = true
	}
	// Role filtering joins against the user directory, so it pages in Go.
	if filter.AuthorRole != "" {
		return r.listByRole(ctx, query, filter.AuthorRole, offset, limit)
	}
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	posts, err := decodePosts(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return posts, int(total), nil
}

func (r *PostRepository) listByRole(ctx context.Context, query bson.M, role domainuser.Role, offset, limit int) ([]domainpost.Post, int, error) {
	if r.RoleFor == nil {
		return []domainpost.Post{}, 0, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	all, err := decodePosts(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	var matched []domainpost.Post
	for i := range all {
		if got, ok := r.RoleFor(ctx, all[i].AuthorID); ok && got == role {
			matched = append(matched, all[i])
		}
	}
	total := len(matched)
	if offset >= total {
		return []domainpost.Post{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *PostRepository) ToggleLike(ctx context.Context, id domainpost.ID, by domainuser.ID) (bool, int, error) {
	return r.toggleSet(ctx, id, by, "likes")
}

func (r *PostRepository) ToggleRepost(ctx context.Context, id domainpost.ID, by domainuser.ID) (bool, int, error) {
	return r.toggleSet(ctx, id, by, "reposts")
}

// toggleSet removes the user from the named set when present, otherwise
// adds them. Both branches are single predicate updates.
func (r *PostRepository) toggleSet(ctx context.Context, id domainpost.ID, by domainuser.ID, field string) (bool, int, error) {
	pull := bson.M{"$pull": bson.M{field: string(by)}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id), "deleted": false, field: string(by)}, pull)
	if err != nil {
		return false, 0, err
	}
	member := false
	if res.MatchedCount == 0 {
		add := bson.M{"$addToSet": bson.M{field: string(by)}}
		res, err = r.col.UpdateOne(ctx, bson.M{"_id": string(id), "deleted": false}, add)
		if err != nil {
			return false, 0, err
		}
		if res.MatchedCount == 0 {
			return false, 0, domainpost.ErrNotFound
		}
		member = true
	}
	post, err := r.ByID(ctx, id)
	if err != nil {
		return false, 0, err
	}
	if field == "reposts" {
		return member, len(post.Reposts), nil
	}
	return member, len(post.Likes), nil
}

func (r *PostRepository) AdjustCommentCount(ctx context.Context, id domainpost.ID, delta int) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id), "deleted": false}, bson.M{"$inc": bson.M{"comments_count": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpost.ErrNotFound
	}
	return nil
}

func (r *PostRepository) SoftDelete(ctx context.Context, id domainpost.ID, at time.Time) error {
	filter := bson.M{"_id": string(id), "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": at.UTC().UnixMilli()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpost.ErrNotFound
	}
	return nil
}

func decodePosts(ctx context.Context, cur *mongo.Cursor) ([]domainpost.Post, error) {
	var out []domainpost.Post
	for cur.Next(ctx) {
		var doc postDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cur.Err()
}

type postDocument struct {
	ID               string               `bson:"_id"`
	AuthorID         string               `bson:"author_id"`
	Content          string               `bson:"content"`
	Images           []imageDocument      `bson:"images,omitempty"`
	Attachments      []attachmentDocument `bson:"attachments,omitempty"`
	Links            []linkDocument       `bson:"links,omitempty"`
	Type             string               `bson:"type"`
	Likes            []string             `bson:"likes,omitempty"`
	Reposts          []string             `bson:"reposts,omitempty"`
	CommentsCount    int                  `bson:"comments_count"`
	IsMentorshipPost bool                 `bson:"is_mentorship_post"`
	MentorshipType   string               `bson:"mentorship_type,omitempty"`
	Subject          string               `bson:"subject,omitempty"`
	GroupID          string               `bson:"group_id,omitempty"`
	Deleted          bool                 `bson:"deleted"`
	DeletedAt        int64                `bson:"deleted_at,omitempty"`
	CreatedAt        int64                `bson:"created_at"`
	UpdatedAt        int64                `bson:"updated_at"`
}

type imageDocument struct {
	URL     string `bson:"url"`
	Key     string `bson:"key,omitempty"`
	Caption string `bson:"caption,omitempty"`
}

type linkDocument struct {
	URL         string `bson:"url"`
	Title       string `bson:"title,omitempty"`
	Description string `bson:"description,omitempty"`
	Image       string `bson:"image,omitempty"`
}

func newPostDocument(p *domainpost.Post) postDocument {
	doc := postDocument{
		ID:               string(p.ID),
		AuthorID:         string(p.AuthorID),
		Content:          p.Content,
		Type:             string(p.Type),
		Likes:            userIDsToStrings(p.Likes),
		Reposts:          userIDsToStrings(p.Reposts),
		CommentsCount:    p.CommentsCount,
		IsMentorshipPost: p.IsMentorshipPost,
		MentorshipType:   string(p.MentorshipType),
		Subject:          p.Subject,
		GroupID:          p.GroupID,
		Deleted:          p.Deleted,
		CreatedAt:        p.CreatedAt.UnixMilli(),
		UpdatedAt:        p.UpdatedAt.UnixMilli(),
	}
	if !p.DeletedAt.IsZero() {
		doc.DeletedAt = p.DeletedAt.UnixMilli()
	}
	for _, img := range p.Images {
		doc.Images = append(doc.Images, imageDocument{URL: img.URL, Key: img.Key, Caption: img.Caption})
	}
	for _, a := range p.Attachments {
		doc.Attachments = append(doc.Attachments, attachmentDocument{Name: a.Name, URL: a.URL, ContentType: a.ContentType, Size: a.Size})
	}
	for _, l := range p.Links {
		doc.Links = append(doc.Links, linkDocument{URL: l.URL, Title: l.Title, Description: l.Description, Image: l.Image})
	}
	return doc
}

func (d postDocument) toAggregate() *domainpost.Post {
	p := &domainpost.Post{
		ID:               domainpost.ID(d.ID),
		AuthorID:         domainuser.ID(d.AuthorID),
		Content:          d.Content,
		Type:             domainpost.Type(d.Type),
		Likes:            stringsToUserIDs(d.Likes),
		Reposts:          stringsToUserIDs(d.Reposts),
		CommentsCount:    d.CommentsCount,
		IsMentorshipPost: d.IsMentorshipPost,
		MentorshipType:   domainpost.MentorshipType(d.MentorshipType),
		Subject:          d.Subject,
		GroupID:          d.GroupID,
		Deleted:          d.Deleted,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
	}
	if d.DeletedAt != 0 {
		p.DeletedAt = timestampToTime(d.DeletedAt)
	}
	for _, img := range d.Images {
		p.Images = append(p.Images, domainpost.Image{URL: img.URL, Key: img.Key, Caption: img.Caption})
	}
	for _, a := range d.Attachments {
		p.Attachments = append(p.Attachments, domainpost.Attachment{Name: a.Name, URL: a.URL, ContentType: a.ContentType, Size: a.Size})
	}
	for _, l := range d.Links {
		p.Links = append(p.Links, domainpost.Link{URL: l.URL, Title: l.Title, Description: l.Description, Image: l.Image})
	}
	return p
}

func userIDsToStrings(ids []domainuser.ID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func stringsToUserIDs(ids []string) []domainuser.ID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]domainuser.ID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domainuser.ID(id))
	}
	return out
}

var _ domainpost.Repository = (*PostRepository)(nil)
