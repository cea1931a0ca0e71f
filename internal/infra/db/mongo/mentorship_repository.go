package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainment "esocial/internal/domain/mentorship"
	domainuser "esocial/internal/domain/user"
)

type MentorshipRepository struct {
	col *mongo.Collection
}

func NewMentorshipRepository(db *mongo.Database) *MentorshipRepository {
	col := db.Collection("mentorships")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "mentor_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "mentee_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &MentorshipRepository{col: col}
}

func (r *MentorshipRepository) Save(ctx context.Context, m *domainment.Mentorship) error {
	if m == nil {
		return domainment.ErrIDRequired
	}
	doc := newMentorshipDocument(m)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *MentorshipRepository) ByID(ctx context.Context, id domainment.ID) (*domainment.Mentorship, error) {
	var doc mentorshipDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainment.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *MentorshipRepository) List(ctx context.Context, filter domainment.ListFilter, offset, limit int) ([]domainment.Mentorship, int, error) {
	query := bson.M{}
	if filter.ParticipantID != "" {
		query["$or"] = []bson.M{
			{"mentor_id": string(filter.ParticipantID)},
			{"mentee_id": string(filter.ParticipantID)},
		}
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
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
	var out []domainment.Mentorship
	for cur.Next(ctx) {
		var doc mentorshipDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, int(total), cur.Err()
}

type mentorshipDocument struct {
	ID          string         `bson:"_id"`
	MentorID    string         `bson:"mentor_id"`
	MenteeID    string         `bson:"mentee_id"`
	Subject     string         `bson:"subject"`
	Description string         `bson:"description"`
	Status      string         `bson:"status"`
	StartDate   int64          `bson:"start_date,omitempty"`
	EndDate     int64          `bson:"end_date,omitempty"`
	Frequency   string         `bson:"frequency"`
	Method      string         `bson:"method"`
	Goals       []string       `bson:"goals,omitempty"`
	Notes       []noteDocument `bson:"notes,omitempty"`
	Rating      int            `bson:"rating,omitempty"`
	Feedback    string         `bson:"feedback,omitempty"`
	CreatedAt   int64          `bson:"created_at"`
	UpdatedAt   int64          `bson:"updated_at"`
}

type noteDocument struct {
	Content string `bson:"content"`
	AddedBy string `bson:"added_by"`
	AddedAt int64  `bson:"added_at"`
}

func newMentorshipDocument(m *domainment.Mentorship) mentorshipDocument {
	doc := mentorshipDocument{
		ID:          string(m.ID),
		MentorID:    string(m.MentorID),
		MenteeID:    string(m.MenteeID),
		Subject:     m.Subject,
		Description: m.Description,
		Status:      string(m.Status),
		Frequency:   string(m.Frequency),
		Method:      string(m.Method),
		Goals:       append([]string(nil), m.Goals...),
		Rating:      m.Rating,
		Feedback:    m.Feedback,
		CreatedAt:   m.CreatedAt.UnixMilli(),
		UpdatedAt:   m.UpdatedAt.UnixMilli(),
	}
	if !m.StartDate.IsZero() {
		doc.StartDate = m.StartDate.UnixMilli()
	}
	if !m.EndDate.IsZero() {
		doc.EndDate = m.EndDate.UnixMilli()
	}
	for _, n := range m.Notes {
		doc.Notes = append(doc.Notes, noteDocument{Content: n.Content, AddedBy: string(n.AddedBy), AddedAt: n.AddedAt.UnixMilli()})
	}
	return doc
}

func (d mentorshipDocument) toAggregate() *domainment.Mentorship {
	m := &domainment.Mentorship{
		ID:          domainment.ID(d.ID),
		MentorID:    domainuser.ID(d.MentorID),
		MenteeID:    domainuser.ID(d.MenteeID),
		Subject:     d.Subject,
		Description: d.Description,
		Status:      domainment.Status(d.Status),
		Frequency:   domainment.Frequency(d.Frequency),
		Method:      domainment.Method(d.Method),
		Goals:       append([]string(nil), d.Goals...),
		Rating:      d.Rating,
		Feedback:    d.Feedback,
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
	}
	if d.StartDate != 0 {
		m.StartDate = timestampToTime(d.StartDate)
	}
	if d.EndDate != 0 {
		m.EndDate = timestampToTime(d.EndDate)
	}
	for _, n := range d.Notes {
		m.Notes = append(m.Notes, domainment.Note{Content: n.Content, AddedBy: domainuser.ID(n.AddedBy), AddedAt: timestampToTime(n.AddedAt)})
	}
	return m
}

var _ domainment.Repository = (*MentorshipRepository)(nil)
