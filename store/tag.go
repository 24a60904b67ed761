package store

import (
	"context"

	"github.com/bookshop/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) ListTags(ctx context.Context) ([]models.Tag, error) {
	cur, err := db.Tags().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var tags []models.Tag
	if err := cur.All(ctx, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (db *DB) TagByID(ctx context.Context, id primitive.ObjectID) (*models.Tag, error) {
	var t models.Tag
	err := db.Tags().FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) TagsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Tag, error) {
	out := make(map[primitive.ObjectID]models.Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := db.Tags().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var tags []models.Tag
	if err := cur.All(ctx, &tags); err != nil {
		return nil, err
	}
	for _, t := range tags {
		out[t.ID] = t
	}
	return out, nil
}

func (db *DB) CreateTag(ctx context.Context, tag *models.Tag) (primitive.ObjectID, error) {
	res, err := db.Tags().InsertOne(ctx, tag, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}
