package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/pkg/metrics"
)

const (
	chatsCollection            = "chats"
	matchExperiencesCollection = "matchexperiences"
)

// MongoChatStore implements ChatStore on a MongoDB collection.
type MongoChatStore struct {
	chats *mongo.Collection
}

// NewMongoChatStore creates a chat store on the given database.
func NewMongoChatStore(db *mongo.Database) *MongoChatStore {
	return &MongoChatStore{chats: db.Collection(chatsCollection)}
}

// EnsureIndexes creates the unique compound index that backs the
// one-chat-per-triple invariant. Concurrent first messages race on
// find-then-create; the index turns the loser's insert into a duplicate key
// error that callers resolve by retrying the find.
func (s *MongoChatStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "matchExperienceId", Value: 1},
			{Key: "matchExperienceCreatorId", Value: 1},
			{Key: "visitorId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create chats index: %w", err)
	}
	return nil
}

// FindBetween returns the chat between two parties for a match experience,
// accepting the parties in either order.
func (s *MongoChatStore) FindBetween(ctx context.Context, matchExperienceID, partyA, partyB string) (*model.Chat, error) {
	timer := time.Now()
	defer observeStoreOp("find_between", timer)

	filter := bson.M{
		"matchExperienceId": matchExperienceID,
		"$or": bson.A{
			bson.M{"matchExperienceCreatorId": partyA, "visitorId": partyB},
			bson.M{"matchExperienceCreatorId": partyB, "visitorId": partyA},
		},
	}

	var chat model.Chat
	err := s.chats.FindOne(ctx, filter).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	return &chat, nil
}

// Create inserts an empty chat for the triple.
func (s *MongoChatStore) Create(ctx context.Context, matchExperienceID, creatorID, visitorID string) (*model.Chat, error) {
	timer := time.Now()
	defer observeStoreOp("create", timer)

	now := time.Now()
	chat := &model.Chat{
		ID:                       primitive.NewObjectID(),
		MatchExperienceID:        matchExperienceID,
		MatchExperienceCreatorID: creatorID,
		VisitorID:                visitorID,
		Messages:                 []model.ChatMessage{},
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrChatExists
		}
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// AppendMessage pushes a message onto the chat document and bumps updatedAt
// in a single update.
func (s *MongoChatStore) AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg model.ChatMessage) error {
	timer := time.Now()
	defer observeStoreOp("append_message", timer)

	res, err := s.chats.UpdateByID(ctx, chatID, bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updatedAt": msg.CreatedAt},
	})
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByMatchExperience returns all chats for a match experience, most
// recently updated first.
func (s *MongoChatStore) ListByMatchExperience(ctx context.Context, matchExperienceID string) ([]model.Chat, error) {
	timer := time.Now()
	defer observeStoreOp("list_by_match_experience", timer)

	cursor, err := s.chats.Find(ctx,
		bson.M{"matchExperienceId": matchExperienceID},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer cursor.Close(ctx)

	var chats []model.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %w", err)
	}
	return chats, nil
}

// MongoMatchExperienceStore resolves match experience creators from the
// matchexperiences collection maintained by the REST side of the product.
type MongoMatchExperienceStore struct {
	experiences *mongo.Collection
}

// NewMongoMatchExperienceStore creates a match experience lookup on the
// given database.
func NewMongoMatchExperienceStore(db *mongo.Database) *MongoMatchExperienceStore {
	return &MongoMatchExperienceStore{experiences: db.Collection(matchExperiencesCollection)}
}

// GetCreatorID returns the createdBy field of the match experience.
func (s *MongoMatchExperienceStore) GetCreatorID(ctx context.Context, matchExperienceID string) (string, error) {
	timer := time.Now()
	defer observeStoreOp("get_creator", timer)

	oid, err := primitive.ObjectIDFromHex(matchExperienceID)
	if err != nil {
		return "", fmt.Errorf("invalid match experience id: %w", err)
	}

	var doc struct {
		CreatedBy primitive.ObjectID `bson:"createdBy"`
	}
	err = s.experiences.FindOne(ctx,
		bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"createdBy": 1}),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find match experience: %w", err)
	}
	return doc.CreatedBy.Hex(), nil
}

func observeStoreOp(op string, start time.Time) {
	metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
