package mongodb

import (
	"context"
	"fmt"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MigrateLegacyDocuments rewrites claims whose documents array still holds bare
// URL strings or the old name/type/uploadDate objects. Decoding goes through
// models.Document, which already yields the canonical shape, so the rewrite
// is a decode followed by a $set. Returns the number of claims rewritten.
func MigrateLegacyDocuments(ctx context.Context, db *mongo.Database) (int, error) {
	coll := db.Collection(ClaimsCollection)
	filter := bson.M{"$or": bson.A{
		bson.M{"documents": bson.M{"$elemMatch": bson.M{"$type": "string"}}},
		bson.M{"documents.name": bson.M{"$exists": true}},
		bson.M{"documents.uploadDate": bson.M{"$exists": true}},
	}}

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("find legacy claims: %w", err)
	}
	defer cursor.Close(ctx)

	migrated := 0
	for cursor.Next(ctx) {
		if !models.IsLegacy(cursor.Current.Lookup("documents")) {
			continue
		}
		var claim models.Claim
		if err := cursor.Decode(&claim); err != nil {
			return migrated, fmt.Errorf("decode claim: %w", err)
		}
		if claim.Documents == nil {
			claim.Documents = []models.Document{}
		}
		_, err := coll.UpdateOne(ctx, bson.M{"_id": claim.ID}, bson.M{"$set": bson.M{"documents": claim.Documents}})
		if err != nil {
			return migrated, fmt.Errorf("rewrite claim %s: %w", claim.ID.Hex(), err)
		}
		migrated++
	}
	return migrated, cursor.Err()
}
