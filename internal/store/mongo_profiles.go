package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medtalks/medtalks-api/internal/models"
)

type MongoProfiles struct {
	db *mongo.Database
}

func NewMongoProfiles(db *mongo.Database) *MongoProfiles {
	return &MongoProfiles{db: db}
}

// Ensure upserts on the owning account id with $setOnInsert so a second call
// never rewrites or duplicates the profile. Two racing upserts both miss the
// filter; the unique index on "user" rejects the loser, which then reads the
// winner's document.
func (s *MongoProfiles) Ensure(ctx context.Context, kind models.ProfileKind, p *models.Profile) (*models.Profile, bool, error) {
	coll := s.db.Collection(string(kind))
	filter := bson.M{"user": p.User}

	p.ID = primitive.NewObjectID()
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$setOnInsert": p}, options.Update().SetUpsert(true))
	dup := mongo.IsDuplicateKeyError(err)
	if err != nil && !dup {
		return nil, false, err
	}
	created := err == nil && res.UpsertedCount == 1

	var stored models.Profile
	if err := coll.FindOne(ctx, filter).Decode(&stored); err != nil {
		// the email index, not the user index, rejected the insert
		if dup && errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, ErrDuplicate
		}
		return nil, false, err
	}
	return &stored, created, nil
}

func (s *MongoProfiles) FindByAccount(ctx context.Context, kind models.ProfileKind, accountID string) (*models.Profile, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, ErrNotFound
	}
	var p models.Profile
	if err := s.db.Collection(string(kind)).FindOne(ctx, bson.M{"user": oid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
