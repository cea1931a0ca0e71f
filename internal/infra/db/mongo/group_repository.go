package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaingroup "esocial/internal/domain/group"
	domainuser "esocial/internal/domain/user"
)

type GroupRepository struct {
	col *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	col := db.Collection("groups")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "members", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &GroupRepository{col: col}
}

func (r *GroupRepository) Save(ctx context.Context, g *domaingroup.Group) error {
	if g == nil {
		return domaingroup.ErrIDRequired
	}
	doc := newGroupDocument(g)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *GroupRepository) ByID(ctx context.Context, id domaingroup.ID) (*domaingroup.Group, error) {
	var doc groupDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "active": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaingroup.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *GroupRepository) List(ctx context.Context, filter domaingroup.ListFilter, offset, limit int) ([]domaingroup.Group, int, error) {
	query := bson.M{"active": true}
	if filter.Category != "" {
		query["category"] = string(filter.Category)
	}
	if filter.University != "" {
		query["university"] = filter.University
	}
	if filter.MemberID != "" {
		query["members"] = string(filter.MemberID)
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
	var out []domaingroup.Group
	for cur.Next(ctx) {
		var doc groupDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, int(total), cur.Err()
}

func (r *GroupRepository) AddMember(ctx context.Context, id domaingroup.ID, member domainuser.ID) error {
	filter := bson.M{"_id": string(id), "active": true, "members": bson.M{"$ne": string(member)}}
	update := bson.M{"$addToSet": bson.M{"members": string(member)}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := r.ByID(ctx, id); err != nil {
		return err
	}
	return domaingroup.ErrAlreadyMember
}

func (r *GroupRepository) RemoveMember(ctx context.Context, id domaingroup.ID, member domainuser.ID) error {
	filter := bson.M{"_id": string(id), "active": true}
	update := bson.M{"$pull": bson.M{"members": string(member), "admins": string(member)}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domaingroup.ErrNotFound
	}
	return nil
}

type groupDocument struct {
	ID          string   `bson:"_id"`
	Name        string   `bson:"name"`
	Description string   `bson:"description"`
	CreatorID   string   `bson:"creator_id"`
	Members     []string `bson:"members"`
	Admins      []string `bson:"admins"`
	Private     bool     `bson:"private"`
	InviteCode  string   `bson:"invite_code,omitempty"`
	Category    string   `bson:"category"`
	University  string   `bson:"university,omitempty"`
	Faculty     string   `bson:"faculty,omitempty"`
	Active      bool     `bson:"active"`
	CreatedAt   int64    `bson:"created_at"`
	UpdatedAt   int64    `bson:"updated_at"`
}

func newGroupDocument(g *domaingroup.Group) groupDocument {
	return groupDocument{
		ID:          string(g.ID),
		Name:        g.Name,
		Description: g.Description,
		CreatorID:   string(g.CreatorID),
		Members:     userIDsToStrings(g.Members),
		Admins:      userIDsToStrings(g.Admins),
		Private:     g.Private,
		InviteCode:  g.InviteCode,
		Category:    string(g.Category),
		University:  g.University,
		Faculty:     g.Faculty,
		Active:      g.Active,
		CreatedAt:   g.CreatedAt.UnixMilli(),
		UpdatedAt:   g.UpdatedAt.UnixMilli(),
	}
}

func (d groupDocument) toAggregate() *domaingroup.Group {
	return &domaingroup.Group{
		ID:          domaingroup.ID(d.ID),
		Name:        d.Name,
		Description: d.Description,
		CreatorID:   domainuser.ID(d.CreatorID),
		Members:     stringsToUserIDs(d.Members),
		Admins:      stringsToUserIDs(d.Admins),
		Private:     d.Private,
		InviteCode:  d.InviteCode,
		Category:    domaingroup.Category(d.Category),
		University:  d.University,
		Faculty:     d.Faculty,
		Active:      d.Active,
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
	}
}

var _ domaingroup.Repository = (*GroupRepository)(nil)
