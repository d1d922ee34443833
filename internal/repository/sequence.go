package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextSequence issues monotonically increasing numeric ids from the
// "counters" collection. Identifiers are numeric across the API and the
// push channel, so ObjectIDs are not used for domain entities.
func nextSequence(ctx context.Context, db *mongo.Database, name string) (uint64, error) {
	var doc struct {
		Seq uint64 `bson:"seq"`
	}
	err := db.Collection("counters").FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
