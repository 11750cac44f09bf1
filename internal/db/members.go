package db

import (
	"context"
	"time"

	"github.com/campusnet/campusnet/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoMemberCollection implements MemberCollection for MongoDB. MatchName
// widens identifier matching to the display name, which only the
// administrator collection allows.
type MongoMemberCollection struct {
	Collection *mongo.Collection
	MatchName  bool
}

// Insert inserts a new member into the collection.
func (c *MongoMemberCollection) Insert(ctx context.Context, member models.Member) error {
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, member)
	return err
}

// FindByUID finds a member by their account uid.
func (c *MongoMemberCollection) FindByUID(ctx context.Context, uid string) (*models.Member, error) {
	var member models.Member
	err := c.Collection.FindOne(ctx, bson.M{"uid": uid}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// FindByIdentifier finds a member of a college whose uid or login handle
// equals the identifier. Administrator collections also match the display
// name.
func (c *MongoMemberCollection) FindByIdentifier(ctx context.Context, collegeID, identifier string) (*models.Member, error) {
	or := []bson.M{
		{"uid": identifier},
		{"handle": identifier},
	}
	if c.MatchName {
		or = append(or, bson.M{"name": identifier})
	}
	filter := bson.M{"college_id": collegeID, "$or": or}

	var member models.Member
	err := c.Collection.FindOne(ctx, filter).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// MongoAccountCollection implements AccountCollection for MongoDB.
type MongoAccountCollection struct {
	Collection *mongo.Collection
}

// Insert inserts a new account.
func (c *MongoAccountCollection) Insert(ctx context.Context, account models.Account) error {
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	account.IsActive = true
	_, err := c.Collection.InsertOne(ctx, account)
	return err
}

// Delete removes the account with the given email. Deleting a missing
// account is not an error.
func (c *MongoAccountCollection) Delete(ctx context.Context, email string) error {
	_, err := c.Collection.DeleteOne(ctx, bson.M{"email": email})
	return err
}

// FindByEmail finds an account by its email.
func (c *MongoAccountCollection) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := c.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}
