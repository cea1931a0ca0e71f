package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainmsg "esocial/internal/domain/messaging"
	domainuser "esocial/internal/domain/user"
)

// MessageRepository persists the message log. Read-state and delete
// transitions are predicate updates so concurrent writers converge on the
// same document state.
type MessageRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	col := db.Collection("messages")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), indexes)
	return &MessageRepository{col: col, counters: db.Collection("counters")}
}

func (r *MessageRepository) Append(ctx context.Context, msg *domainmsg.Message) error {
	if msg == nil {
		return domainmsg.ErrIDRequired
	}
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	msg.Seq = seq
	_, err = r.col.InsertOne(ctx, newMessageDocument(msg))
	return err
}

func (r *MessageRepository) ByID(ctx context.Context, id domainmsg.ID) (*domainmsg.Message, error) {
	var doc messageDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "deleted": false}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmsg.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *MessageRepository) Thread(ctx context.Context, a, b domainuser.ID, offset, limit int) ([]domainmsg.Message, int, error) {
	filter := threadFilter(a, b)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	msgs, err := decodeMessages(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return msgs, int(total), nil
}

func (r *MessageRepository) ListForUser(ctx context.Context, id domainuser.ID) ([]domainmsg.Message, error) {
	filter := bson.M{
		"deleted": false,
		"$or": []bson.M{
			{"sender_id": string(id)},
			{"receiver_id": string(id)},
		},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeMessages(ctx, cur)
}

func (r *MessageRepository) MarkThreadRead(ctx context.Context, viewer, counterpart domainuser.ID, at time.Time) error {
	filter := bson.M{
		"receiver_id": string(viewer),
		"sender_id":   string(counterpart),
		"read":        false,
		"deleted":     false,
	}
	update := bson.M{"$set": bson.M{"read": true, "read_at": at.UTC().UnixMilli()}}
	_, err := r.col.UpdateMany(ctx, filter, update)
	return err
}

func (r *MessageRepository) MarkRead(ctx context.Context, id domainmsg.ID, at time.Time) error {
	filter := bson.M{"_id": string(id), "read": false, "deleted": false}
	update := bson.M{"$set": bson.M{"read": true, "read_at": at.UTC().UnixMilli()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	// Already read is fine; absent or deleted is not.
	if _, err := r.ByID(ctx, id); err != nil {
		return err
	}
	return nil
}

func (r *MessageRepository) SoftDelete(ctx context.Context, id domainmsg.ID, at time.Time) error {
	filter := bson.M{"_id": string(id), "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": at.UTC().UnixMilli()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainmsg.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) nextSeq(ctx context.Context) (int64, error) {
	update := bson.M{"$inc": bson.M{"value": int64(1)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": "message_seq"}, update, opts).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}

func threadFilter(a, b domainuser.ID) bson.M {
	return bson.M{
		"deleted": false,
		"$or": []bson.M{
			{"sender_id": string(a), "receiver_id": string(b)},
			{"sender_id": string(b), "receiver_id": string(a)},
		},
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func decodeMessages(ctx context.Context, cur *mongo.Cursor) ([]domainmsg.Message, error) {
	var out []domainmsg.Message
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *doc.toAggregate())
	}
	return out, cur.Err()
}

type messageDocument struct {
	ID          string               `bson:"_id"`
	SenderID    string               `bson:"sender_id"`
	ReceiverID  string               `bson:"receiver_id"`
	Content     string               `bson:"content"`
	Attachments []attachmentDocument `bson:"attachments,omitempty"`
	Read        bool                 `bson:"read"`
	ReadAt      int64                `bson:"read_at,omitempty"`
	Deleted     bool                 `bson:"deleted"`
	DeletedAt   int64                `bson:"deleted_at,omitempty"`
	Seq         int64                `bson:"seq"`
	CreatedAt   int64                `bson:"created_at"`
}

type attachmentDocument struct {
	Name        string `bson:"name"`
	URL         string `bson:"url"`
	ContentType string `bson:"content_type"`
	Size        int64  `bson:"size"`
}

func newMessageDocument(m *domainmsg.Message) messageDocument {
	doc := messageDocument{
		ID:         string(m.ID),
		SenderID:   string(m.SenderID),
		ReceiverID: string(m.ReceiverID),
		Content:    m.Content,
		Read:       m.Read,
		Deleted:    m.Deleted,
		Seq:        m.Seq,
		CreatedAt:  m.CreatedAt.UnixMilli(),
	}
	if !m.ReadAt.IsZero() {
		doc.ReadAt = m.ReadAt.UnixMilli()
	}
	if !m.DeletedAt.IsZero() {
		doc.DeletedAt = m.DeletedAt.UnixMilli()
	}
	for _, a := range m.Attachments {
		doc.Attachments = append(doc.Attachments, attachmentDocument{
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return doc
}

func (d messageDocument) toAggregate() *domainmsg.Message {
	msg := &domainmsg.Message{
		ID:         domainmsg.ID(d.ID),
		SenderID:   domainuser.ID(d.SenderID),
		ReceiverID: domainuser.ID(d.ReceiverID),
		Content:    d.Content,
		Read:       d.Read,
		Deleted:    d.Deleted,
		Seq:        d.Seq,
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
	if d.ReadAt != 0 {
		msg.ReadAt = timestampToTime(d.ReadAt)
	}
	if d.DeletedAt != 0 {
		msg.DeletedAt = timestampToTime(d.DeletedAt)
	}
	for _, a := range d.Attachments {
		msg.Attachments = append(msg.Attachments, domainmsg.Attachment{
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return msg
}

var _ domainmsg.Store = (*MessageRepository)(nil)
