package db

import (
	"context"
	"fmt"
	"time"

	"github.com/campusnet/campusnet/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBusCollection implements BusCollection for MongoDB.
type MongoBusCollection struct {
	Collection *mongo.Collection
}

// Insert inserts a bus record and returns its id.
func (c *MongoBusCollection) Insert(ctx context.Context, bus models.Bus) (string, error) {
	bus.ID = primitive.NewObjectID()
	bus.CreatedAt = time.Now()
	bus.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, bus)
	if err != nil {
		return "", err
	}
	return bus.ID.Hex(), nil
}

// FindByID finds a bus by its id.
func (c *MongoBusCollection) FindByID(ctx context.Context, id string) (*models.Bus, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid bus ID: %w", err)
	}
	var bus models.Bus
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&bus)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bus, nil
}

// FindByCollege lists the buses of a college.
func (c *MongoBusCollection) FindByCollege(ctx context.Context, collegeID string) ([]models.Bus, error) {
	cursor, err := c.Collection.Find(ctx, bson.M{"college_id": collegeID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var buses []models.Bus
	if err := cursor.All(ctx, &buses); err != nil {
		return nil, err
	}
	return buses, nil
}

// FindByDriver returns the bus currently assigned to a driver, if any.
func (c *MongoBusCollection) FindByDriver(ctx context.Context, driverUID string) (*models.Bus, error) {
	var bus models.Bus
	err := c.Collection.FindOne(ctx, bson.M{"driver_uid": driverUID}).Decode(&bus)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bus, nil
}

// Update updates a bus by its id.
func (c *MongoBusCollection) Update(ctx context.Context, id string, bus models.Bus) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid bus ID: %w", err)
	}
	bus.UpdatedAt = time.Now()
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{
		"number":     bus.Number,
		"route":      bus.Route,
		"updated_at": bus.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a bus by its id.
func (c *MongoBusCollection) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid bus ID: %w", err)
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignDriver sets the driver of a bus. An empty driverUID clears the
// assignment.
func (c *MongoBusCollection) AssignDriver(ctx context.Context, id, driverUID string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid bus ID: %w", err)
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{
		"driver_uid": driverUID,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
