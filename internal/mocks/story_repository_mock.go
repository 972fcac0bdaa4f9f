package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"carousel-service/internal/models"
	"carousel-service/internal/repository"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Story
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.Story); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.Story)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID) error); ok {
		r1 = rf(ctx, id)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// UpdateShareStatus provides a mock function with given fields: ctx, id, status
func (_m *MockStoryRepository) UpdateShareStatus(ctx context.Context, id uuid.UUID, status models.ShareStatus) error {
	ret := _m.Called(ctx, id, status)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, models.ShareStatus) error); ok {
		r0 = rf(ctx, id, status)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListEligible provides a mock function with given fields: ctx, limit
func (_m *MockStoryRepository) ListEligible(ctx context.Context, limit int) ([]models.StorySummary, error) {
	ret := _m.Called(ctx, limit)

	var r0 []models.StorySummary
	if rf, ok := ret.Get(0).(func(context.Context, int) []models.StorySummary); ok {
		r0 = rf(ctx, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]models.StorySummary)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, int) error); ok {
		r1 = rf(ctx, limit)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)
