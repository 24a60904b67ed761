package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Author struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Bio   string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Image string             `bson:"image,omitempty" json:"image,omitempty"`
}

type Category struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}

type Tag struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}
