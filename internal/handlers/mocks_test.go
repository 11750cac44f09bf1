package handlers

import (
	"context"

	"github.com/campusnet/campusnet/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockAccountCollection is a mock implementation of db.AccountCollection
type MockAccountCollection struct {
	mock.Mock
}

func (m *MockAccountCollection) Insert(ctx context.Context, account models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountCollection) Delete(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAccountCollection) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

// MockMemberCollection is a mock implementation of db.MemberCollection
type MockMemberCollection struct {
	mock.Mock
}

func (m *MockMemberCollection) Insert(ctx context.Context, member models.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberCollection) FindByUID(ctx context.Context, uid string) (*models.Member, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberCollection) FindByIdentifier(ctx context.Context, collegeID, identifier string) (*models.Member, error) {
	args := m.Called(ctx, collegeID, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

// MockResolver is a mock implementation of LoginResolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, collegeCode, identifier string) (*models.Member, *models.College, error) {
	args := m.Called(ctx, collegeCode, identifier)
	var member *models.Member
	var college *models.College
	if args.Get(0) != nil {
		member = args.Get(0).(*models.Member)
	}
	if args.Get(1) != nil {
		college = args.Get(1).(*models.College)
	}
	return member, college, args.Error(2)
}

// MockBusCollection is a mock implementation of db.BusCollection
type MockBusCollection struct {
	mock.Mock
}

func (m *MockBusCollection) Insert(ctx context.Context, bus models.Bus) (string, error) {
	args := m.Called(ctx, bus)
	return args.String(0), args.Error(1)
}

func (m *MockBusCollection) FindByID(ctx context.Context, id string) (*models.Bus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bus), args.Error(1)
}

func (m *MockBusCollection) FindByCollege(ctx context.Context, collegeID string) ([]models.Bus, error) {
	args := m.Called(ctx, collegeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bus), args.Error(1)
}

func (m *MockBusCollection) FindByDriver(ctx context.Context, driverUID string) (*models.Bus, error) {
	args := m.Called(ctx, driverUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bus), args.Error(1)
}

func (m *MockBusCollection) Update(ctx context.Context, id string, bus models.Bus) error {
	args := m.Called(ctx, id, bus)
	return args.Error(0)
}

func (m *MockBusCollection) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBusCollection) AssignDriver(ctx context.Context, id, driverUID string) error {
	args := m.Called(ctx, id, driverUID)
	return args.Error(0)
}

// MockSettingCollection is a mock implementation of db.SettingCollection
type MockSettingCollection struct {
	mock.Mock
}

func (m *MockSettingCollection) Get(ctx context.Context, collegeID string) (*models.ModuleSetting, error) {
	args := m.Called(ctx, collegeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModuleSetting), args.Error(1)
}

func (m *MockSettingCollection) Set(ctx context.Context, collegeID string, enabled bool) error {
	args := m.Called(ctx, collegeID, enabled)
	return args.Error(0)
}

// MockLocationCollection is a mock implementation of db.LocationCollection
type MockLocationCollection struct {
	mock.Mock
}

func (m *MockLocationCollection) Upsert(ctx context.Context, rec models.LocationRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockLocationCollection) StopTracking(ctx context.Context, busID string) error {
	args := m.Called(ctx, busID)
	return args.Error(0)
}

func (m *MockLocationCollection) FindByBus(ctx context.Context, busID string) (*models.LocationRecord, error) {
	args := m.Called(ctx, busID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LocationRecord), args.Error(1)
}
