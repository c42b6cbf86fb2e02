package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medtalks/medtalks-api/internal/models"
)

type MongoAccounts struct {
	coll *mongo.Collection
}

func NewMongoAccounts(db *mongo.Database) *MongoAccounts {
	return &MongoAccounts{coll: db.Collection(AccountsCollection)}
}

func (s *MongoAccounts) Create(ctx context.Context, acc *models.Account) error {
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *MongoAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoAccounts) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"resetToken": token, "resetTokenExpiry": bson.M{"$gt": now}})
}

func (s *MongoAccounts) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var acc models.Account
	if err := s.coll.FindOne(ctx, filter).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *MongoAccounts) ListPending(ctx context.Context) ([]models.Account, error) {
	return s.find(ctx, bson.M{"isApproved": false})
}

func (s *MongoAccounts) ListAll(ctx context.Context) ([]models.Account, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoAccounts) find(ctx context.Context, filter bson.M) ([]models.Account, error) {
	// newest first
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	accounts := make([]models.Account, 0)
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *MongoAccounts) Approve(ctx context.Context, id string, token string, expiry time.Time) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"isApproved":       true,
		"resetToken":       token,
		"resetTokenExpiry": expiry,
	}}
	return s.findOneAndUpdate(ctx, bson.M{"_id": oid}, update)
}

func (s *MongoAccounts) IssueResetToken(ctx context.Context, id string, token string, expiry time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"resetToken":       token,
		"resetTokenExpiry": expiry,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoAccounts) RedeemResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*models.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	filter := bson.M{"resetToken": token, "resetTokenExpiry": bson.M{"$gt": now}}
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "passwordState": models.PasswordSet},
		"$unset": bson.M{"resetToken": "", "resetTokenExpiry": ""},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *MongoAccounts) Update(ctx context.Context, id string, upd AccountUpdate) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}
	acc, err := s.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	return acc, err
}

func (s *MongoAccounts) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Account, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var acc models.Account
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *MongoAccounts) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoAccounts) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"resetTokenExpiry": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"resetToken": "", "resetTokenExpiry": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
