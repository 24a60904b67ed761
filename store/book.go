package store

import (
	"context"
	"regexp"

	"github.com/bookshop/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookQuery describes one page of the books collection. The same selector
// drives both the page fetch and the count so pagination metadata always
// agrees with the rows returned.
type BookQuery struct {
	Owner  *primitive.ObjectID
	Search string
	Sort   bson.D
	Limit  int64
	Offset int64
}

func (q BookQuery) selector() bson.M {
	filter := bson.M{}
	if q.Owner != nil {
		filter["userId"] = *q.Owner
	}
	if q.Search != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	}
	return filter
}

func (db *DB) ListBooks(ctx context.Context, q BookQuery) ([]models.Book, error) {
	opts := options.Find().SetSkip(q.Offset).SetLimit(q.Limit)
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	cur, err := db.Books().Find(ctx, q.selector(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (db *DB) CountBooks(ctx context.Context, q BookQuery) (int64, error) {
	return db.Books().CountDocuments(ctx, q.selector())
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// AssignTagToBook adds the tag to the book's tag set. Re-assigning an
// already-present tag is a no-op.
func (db *DB) AssignTagToBook(ctx context.Context, bookID, tagID primitive.ObjectID) error {
	_, err := db.Books().UpdateOne(ctx, bson.M{"_id": bookID}, bson.M{
		"$addToSet": bson.M{"tagIds": tagID},
	})
	return err
}
