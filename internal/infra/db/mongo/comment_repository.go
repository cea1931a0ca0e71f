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

type CommentRepository struct {
	col *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *CommentRepository {
	col := db.Collection("comments")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "created_at", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &CommentRepository{col: col}
}

func (r *CommentRepository) Save(ctx context.Context, c *domainpost.Comment) error {
	if c == nil {
		return domainpost.ErrIDRequired
	}
	doc := newCommentDocument(c)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *CommentRepository) ByID(ctx context.Context, id domainpost.CommentID) (*domainpost.Comment, error) {
	var doc commentDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "deleted": false}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpost.ErrCommentNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CommentRepository) ListForPost(ctx context.Context, postID domainpost.ID, offset, limit int) ([]domainpost.Comment, int, error) {
	query := bson.M{"post_id": string(postID), "parent_id": "", "deleted": false}
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	comments, err := decodeComments(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return comments, int(total), nil
}

func (r *CommentRepository) Replies(ctx context.Context, parentID domainpost.CommentID) ([]domainpost.Comment, error) {
	query := bson.M{"parent_id": string(parentID), "deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeComments(ctx, cur)
}

func (r *CommentRepository) ToggleLike(ctx context.Context, id domainpost.CommentID, by domainuser.ID) (bool, int, error) {
	pull := bson.M{"$pull": bson.M{"likes": string(by)}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id), "deleted": false, "likes": string(by)}, pull)
	if err != nil {
		return false, 0, err
	}
	liked := false
	if res.MatchedCount == 0 {
		add := bson.M{"$addToSet": bson.M{"likes": string(by)}}
		res, err = r.col.UpdateOne(ctx, bson.M{"_id": string(id), "deleted": false}, add)
		if err != nil {
			return false, 0, err
		}
		if res.MatchedCount == 0 {
			return false, 0, domainpost.ErrCommentNotFound
		}
		liked = true
	}
	comment, err := r.ByID(ctx, id)
	if err != nil {
		return false, 0, err
	}
	return liked, len(comment.Likes), nil
}

func (r *CommentRepository) AdjustReplyCount(ctx context.Context, id domainpost.CommentID, delta int) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id), "deleted": false}, bson.M{"$inc": bson.M{"replies_count": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpost.ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepository) SoftDelete(ctx context.Context, id domainpost.CommentID, at time.Time) error {
	filter := bson.M{"_id": string(id), "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": at.UTC().UnixMilli()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpost.ErrCommentNotFound
	}
	return nil
}

func decodeComments(ctx context.Context, cur *mongo.Cursor) ([]domainpost.Comment, error) {
	var out []domainpost.Comment
	for cur.Next(ctx) {
		var doc commentDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cur.Err()
}

type commentDocument struct {
	ID           string   `bson:"_id"`
	PostID       string   `bson:"post_id"`
	AuthorID     string   `bson:"author_id"`
	Content      string   `bson:"content"`
	ParentID     string   `bson:"parent_id"`
	Likes        []string `bson:"likes,omitempty"`
	RepliesCount int      `bson:"replies_count"`
	Deleted      bool     `bson:"deleted"`
	DeletedAt    int64    `bson:"deleted_at,omitempty"`
	CreatedAt    int64    `bson:"created_at"`
}

func newCommentDocument(c *domainpost.Comment) commentDocument {
	doc := commentDocument{
		ID:           string(c.ID),
		PostID:       string(c.PostID),
		AuthorID:     string(c.AuthorID),
		Content:      c.Content,
		ParentID:     string(c.ParentID),
		Likes:        userIDsToStrings(c.Likes),
		RepliesCount: c.RepliesCount,
		Deleted:      c.Deleted,
		CreatedAt:    c.CreatedAt.UnixMilli(),
	}
	if !c.DeletedAt.IsZero() {
		doc.DeletedAt = c.DeletedAt.UnixMilli()
	}
	return doc
}

func (d commentDocument) toAggregate() *domainpost.Comment {
	c := &domainpost.Comment{
		ID:           domainpost.CommentID(d.ID),
		PostID:       domainpost.ID(d.PostID),
		AuthorID:     domainuser.ID(d.AuthorID),
		Content:      d.Content,
		ParentID:     domainpost.CommentID(d.ParentID),
		Likes:        stringsToUserIDs(d.Likes),
		RepliesCount: d.RepliesCount,
		Deleted:      d.Deleted,
		CreatedAt:    timestampToTime(d.CreatedAt),
	}
	if d.DeletedAt != 0 {
		c.DeletedAt = timestampToTime(d.DeletedAt)
	}
	return c
}

var _ domainpost.CommentRepository = (*CommentRepository)(nil)
