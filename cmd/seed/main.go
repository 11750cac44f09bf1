package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/campusnet/campusnet/internal/auth"
	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/models"
)

// Seeds a development database: one college, an admin, a driver with an
// assigned bus, and the tracking module switched on. Safe to run twice.
func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Error("failed to connect to MongoDB")
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())
	store := db.NewStore(client.Database(db.DatabaseName()))

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Error("failed to initialize auth service")
		os.Exit(1)
	}

	if err := seed(ctx, store, authService); err != nil {
		log.WithError(err).Error("seeding failed")
		os.Exit(1)
	}
	log.Info("seeding completed")
}

func seed(ctx context.Context, store *db.Store, authService *auth.Service) error {
	college, err := store.Colleges.FindByCode(ctx, "CME001")
	if errors.Is(err, db.ErrNotFound) {
		if err := store.Colleges.Insert(ctx, models.College{
			Name: "Central Metro Engineering",
			Code: "CME001",
		}); err != nil {
			return err
		}
		college, err = store.Colleges.FindByCode(ctx, "CME001")
	}
	if err != nil {
		return err
	}
	collegeID := college.ID.Hex()
	log.WithField("college_id", collegeID).Info("college ready")

	if err := ensureUser(ctx, store, authService, models.Member{
		UID:       "ADM-1",
		CollegeID: collegeID,
		Name:      "Seed Admin",
		Handle:    "admin",
		Email:     "admin@cme001.example.edu",
		Role:      models.RoleAdmin,
	}, "admin-password"); err != nil {
		return err
	}

	if err := ensureUser(ctx, store, authService, models.Member{
		UID:       "DRV-1",
		CollegeID: collegeID,
		Name:      "Seed Driver",
		Handle:    "driver1",
		Email:     "driver1@cme001.example.edu",
		Role:      models.RoleDriver,
	}, "driver-password"); err != nil {
		return err
	}

	busID, err := ensureBus(ctx, store, collegeID, "07", "North Gate Loop")
	if err != nil {
		return err
	}
	if _, err := ensureBus(ctx, store, collegeID, "12", "Dormitory Express"); err != nil {
		return err
	}
	if err := store.Buses.AssignDriver(ctx, busID, "DRV-1"); err != nil {
		return err
	}

	return store.Settings.Set(ctx, collegeID, true)
}

func ensureUser(ctx context.Context, store *db.Store, authService *auth.Service, member models.Member, password string) error {
	if _, err := store.Accounts.FindByEmail(ctx, member.Email); err == nil {
		log.WithField("uid", member.UID).Info("user already exists")
		return nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	hash, err := authService.HashPassword(password)
	if err != nil {
		return err
	}
	if err := store.Accounts.Insert(ctx, models.Account{
		UID:          member.UID,
		Email:        member.Email,
		PasswordHash: hash,
		Role:         member.Role,
		CollegeID:    member.CollegeID,
	}); err != nil {
		return err
	}

	members := map[models.Role]db.MemberCollection{
		models.RoleAdmin:   store.Admins,
		models.RoleTeacher: store.Teachers,
		models.RoleStudent: store.Students,
		models.RoleDriver:  store.Drivers,
	}
	if err := members[member.Role].Insert(ctx, member); err != nil {
		return err
	}
	log.WithFields(log.Fields{"uid": member.UID, "role": member.Role}).Info("user created")
	return nil
}

func ensureBus(ctx context.Context, store *db.Store, collegeID, number, route string) (string, error) {
	buses, err := store.Buses.FindByCollege(ctx, collegeID)
	if err != nil {
		return "", err
	}
	for _, bus := range buses {
		if bus.Number == number {
			return bus.ID.Hex(), nil
		}
	}
	id, err := store.Buses.Insert(ctx, models.Bus{
		CollegeID: collegeID,
		Number:    number,
		Route:     route,
	})
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"bus_id": id, "number": number}).Info("bus created")
	return id, nil
}
