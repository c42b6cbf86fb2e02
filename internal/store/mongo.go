package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medtalks/medtalks-api/internal/models"
)

// Connect dials MongoDB and pings the primary.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

// EnsureIndexes creates the unique constraints the workflow relies on:
// one account per email and at most one profile per account.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	accounts := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "resetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "isApproved", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection(AccountsCollection).Indexes().CreateMany(ctx, accounts); err != nil {
		return fmt.Errorf("account indexes: %w", err)
	}

	for _, kind := range []models.ProfileKind{models.DoctorProfile, models.TrainerProfile} {
		profiles := []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		}
		if _, err := db.Collection(string(kind)).Indexes().CreateMany(ctx, profiles); err != nil {
			return fmt.Errorf("%s indexes: %w", kind, err)
		}
	}
	return nil
}
