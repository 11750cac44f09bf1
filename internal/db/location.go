package db

import (
	"context"
	"fmt"
	"time"

	"github.com/campusnet/campusnet/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLocationCollection implements LocationCollection for MongoDB.
type MongoLocationCollection struct {
	Collection *mongo.Collection
}

// Upsert overwrites the location record of a bus. No concurrency token is
// attached; last writer wins.
func (c *MongoLocationCollection) Upsert(ctx context.Context, rec models.LocationRecord) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.ReplaceOne(
		ctx,
		bson.M{"bus_id": rec.BusID},
		rec,
		options.Replace().SetUpsert(true),
	)
	return err
}

// StopTracking flips is_tracking off for a bus, preserving the last
// coordinates and refreshing the timestamp.
func (c *MongoLocationCollection) StopTracking(ctx context.Context, busID string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"bus_id": busID},
		bson.M{"$set": bson.M{"is_tracking": false, "timestamp": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// FindByBus returns the location record of a bus.
func (c *MongoLocationCollection) FindByBus(ctx context.Context, busID string) (*models.LocationRecord, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var rec models.LocationRecord
	err := c.Collection.FindOne(ctx, bson.M{"bus_id": busID}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
