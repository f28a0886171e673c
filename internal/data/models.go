package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User maps to the users collection.
type User struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email      string        `bson:"email" json:"email"`
	FullName   string        `bson:"full_name" json:"fullName"`
	Password   string        `bson:"password" json:"-"`
	ProfilePic string        `bson:"profile_pic" json:"profilePic"`
	CreatedAt  time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updatedAt"`
}

// Message maps to the messages collection. A message belongs to the
// conversation between SenderID and ReceiverID; SeenAt is set exactly once,
// when Seen flips from false to true.
type Message struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	SenderID   string        `bson:"sender_id" json:"senderId"`
	ReceiverID string        `bson:"receiver_id" json:"receiverId"`
	Text       string        `bson:"text,omitempty" json:"text,omitempty"`
	Image      string        `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"createdAt"`
	Seen       bool          `bson:"seen" json:"seen"`
	SeenAt     *time.Time    `bson:"seen_at,omitempty" json:"seenAt,omitempty"`
}
