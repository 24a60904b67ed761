package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Book struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	Price           primitive.Decimal128 `bson:"price" json:"price"`
	CoverImage      string               `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	PublicationYear int                  `bson:"publicationYear,omitempty" json:"publicationYear,omitempty"`
	AuthorID        primitive.ObjectID   `bson:"authorId" json:"authorId"`
	CategoryID      primitive.ObjectID   `bson:"categoryId" json:"categoryId"`
	UserID          primitive.ObjectID   `bson:"userId" json:"userId"`
	TagIDs          []primitive.ObjectID `bson:"tagIds,omitempty" json:"-"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}
