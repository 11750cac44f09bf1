package db

import (
	"context"
	"strings"
	"time"

	"github.com/campusnet/campusnet/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollegeCollection implements CollegeCollection for MongoDB.
type MongoCollegeCollection struct {
	Collection *mongo.Collection
}

// Insert inserts a college. The code is stored upper-cased so lookups are
// case-insensitive.
func (c *MongoCollegeCollection) Insert(ctx context.Context, college models.College) error {
	college.Code = strings.ToUpper(strings.TrimSpace(college.Code))
	college.CreatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, college)
	return err
}

// FindByCode finds a college by its unique code, case-normalized.
func (c *MongoCollegeCollection) FindByCode(ctx context.Context, code string) (*models.College, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var college models.College
	err := c.Collection.FindOne(ctx, bson.M{"code": code}).Decode(&college)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &college, nil
}

// MongoSettingCollection implements SettingCollection for MongoDB.
type MongoSettingCollection struct {
	Collection *mongo.Collection
}

// Get returns the tracking module setting of a college. A missing record
// means the module was never enabled.
func (c *MongoSettingCollection) Get(ctx context.Context, collegeID string) (*models.ModuleSetting, error) {
	var setting models.ModuleSetting
	err := c.Collection.FindOne(ctx, bson.M{"college_id": collegeID}).Decode(&setting)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &setting, nil
}

// Set upserts the tracking module setting of a college.
func (c *MongoSettingCollection) Set(ctx context.Context, collegeID string, enabled bool) error {
	_, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"college_id": collegeID},
		bson.M{"$set": bson.M{"is_enabled": enabled, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}
