package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainuser "esocial/internal/domain/user"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	col := db.Collection("users")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verification.token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "password_reset.token", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &UserRepository{col: col}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) ByVerificationToken(ctx context.Context, token string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"verification.token": token})
}

func (r *UserRepository) ByPasswordResetToken(ctx context.Context, token string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"password_reset.token": token})
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	doc := newUserDocument(user)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainuser.ErrEmailAlreadyUsed
		}
		return err
	}
	return nil
}

func (r *UserRepository) Search(ctx context.Context, filter domainuser.SearchFilter) ([]domainuser.User, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}
	if filter.University != "" {
		query["university"] = filter.University
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		regex := bson.M{"$regex": escapeRegex(q), "$options": "i"}
		query["$or"] = []bson.M{
			{"first_name": regex},
			{"last_name": regex},
			{"email": regex},
		}
	}
	cur, err := r.col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainuser.User
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domainuser.User, error) {
	var doc userDocument
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func escapeRegex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
		`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
		`^`, `\^`, `$`, `\$`, `|`, `\|`,
	)
	return replacer.Replace(s)
}

type userDocument struct {
	ID           string               `bson:"_id"`
	Email        string               `bson:"email"`
	FirstName    string               `bson:"first_name"`
	LastName     string               `bson:"last_name"`
	PasswordHash string               `bson:"password_hash"`
	Role         string               `bson:"role"`
	University   string               `bson:"university"`
	Faculty      string               `bson:"faculty,omitempty"`
	Major        string               `bson:"major,omitempty"`
	StudentGroup string               `bson:"student_group,omitempty"`
	AvatarURL    string               `bson:"avatar_url,omitempty"`
	Bio          string               `bson:"bio,omitempty"`
	SocialLinks  []socialLinkDocument `bson:"social_links,omitempty"`
	Verified     bool                 `bson:"verified"`
	Verification tokenGrantDocument   `bson:"verification,omitempty"`
	PasswordRst  tokenGrantDocument   `bson:"password_reset,omitempty"`
	Online       bool                 `bson:"online"`
	LastSeen     int64                `bson:"last_seen"`
	CreatedAt    int64                `bson:"created_at"`
	UpdatedAt    int64                `bson:"updated_at"`
}

type socialLinkDocument struct {
	Platform string `bson:"platform"`
	URL      string `bson:"url"`
}

type tokenGrantDocument struct {
	Token     string `bson:"token,omitempty"`
	ExpiresAt int64  `bson:"expires_at,omitempty"`
}

func newUserDocument(u *domainuser.User) userDocument {
	doc := userDocument{
		ID:           string(u.ID),
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		University:   u.University,
		Faculty:      u.Faculty,
		Major:        u.Major,
		StudentGroup: u.StudentGroup,
		AvatarURL:    u.AvatarURL,
		Bio:          u.Bio,
		Verified:     u.Verified,
		Verification: newTokenGrantDocument(u.Verification),
		PasswordRst:  newTokenGrantDocument(u.PasswordRst),
		Online:       u.Online,
		LastSeen:     u.LastSeen.UnixMilli(),
		CreatedAt:    u.CreatedAt.UnixMilli(),
		UpdatedAt:    u.UpdatedAt.UnixMilli(),
	}
	for _, link := range u.SocialLinks {
		doc.SocialLinks = append(doc.SocialLinks, socialLinkDocument{Platform: link.Platform, URL: link.URL})
	}
	return doc
}

func newTokenGrantDocument(g domainuser.TokenGrant) tokenGrantDocument {
	if g.Token == "" {
		return tokenGrantDocument{}
	}
	return tokenGrantDocument{Token: g.Token, ExpiresAt: g.ExpiresAt.UnixMilli()}
}

func (d userDocument) toAggregate() *domainuser.User {
	u := &domainuser.User{
		ID:           domainuser.ID(d.ID),
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PasswordHash: d.PasswordHash,
		Role:         domainuser.Role(d.Role),
		University:   d.University,
		Faculty:      d.Faculty,
		Major:        d.Major,
		StudentGroup: d.StudentGroup,
		AvatarURL:    d.AvatarURL,
		Bio:          d.Bio,
		Verified:     d.Verified,
		Online:       d.Online,
		LastSeen:     timestampToTime(d.LastSeen),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
	if d.Verification.Token != "" {
		u.Verification = domainuser.TokenGrant{Token: d.Verification.Token, ExpiresAt: timestampToTime(d.Verification.ExpiresAt)}
	}
	if d.PasswordRst.Token != "" {
		u.PasswordRst = domainuser.TokenGrant{Token: d.PasswordRst.Token, ExpiresAt: timestampToTime(d.PasswordRst.ExpiresAt)}
	}
	for _, link := range d.SocialLinks {
		u.SocialLinks = append(u.SocialLinks, domainuser.SocialLink{Platform: link.Platform, URL: link.URL})
	}
	return u
}

var _ domainuser.Repository = (*UserRepository)(nil)
var _ domainuser.Searcher = (*UserRepository)(nil)
