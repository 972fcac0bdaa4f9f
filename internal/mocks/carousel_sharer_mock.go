package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"carousel-service/internal/models"
	"carousel-service/internal/service"
)

// MockCarouselSharer is a mock type for the CarouselSharer type
type MockCarouselSharer struct {
	mock.Mock
}

// ShareCarousel provides a mock function with given fields: ctx, storyID
func (_m *MockCarouselSharer) ShareCarousel(ctx context.Context, storyID uuid.UUID) (*models.ShareResult, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *models.ShareResult
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.ShareResult); ok {
		r0 = rf(ctx, storyID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.ShareResult)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID) error); ok {
		r1 = rf(ctx, storyID)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// ListEligible provides a mock function with given fields: ctx, limit
func (_m *MockCarouselSharer) ListEligible(ctx context.Context, limit int) ([]models.StorySummary, error) {
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

// NewMockCarouselSharer creates a new instance of MockCarouselSharer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCarouselSharer(t interface {
	mock.TestingT
	Helper()
}) *MockCarouselSharer {
	m := &MockCarouselSharer{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.CarouselSharer = (*MockCarouselSharer)(nil)
