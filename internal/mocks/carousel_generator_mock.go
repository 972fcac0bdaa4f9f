package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"carousel-service/internal/models"
	"carousel-service/internal/service"
)

// MockCarouselGenerator is a mock type for the CarouselGenerator type
type MockCarouselGenerator struct {
	mock.Mock
}

// GenerateCarousel provides a mock function with given fields: ctx, storyID
func (_m *MockCarouselGenerator) GenerateCarousel(ctx context.Context, storyID uuid.UUID) (*models.GenerationSummary, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *models.GenerationSummary
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.GenerationSummary); ok {
		r0 = rf(ctx, storyID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.GenerationSummary)
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

// GetCarousel provides a mock function with given fields: ctx, storyID
func (_m *MockCarouselGenerator) GetCarousel(ctx context.Context, storyID uuid.UUID) (*models.CarouselRecord, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *models.CarouselRecord
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.CarouselRecord); ok {
		r0 = rf(ctx, storyID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.CarouselRecord)
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

// GetSlideImage provides a mock function with given fields: ctx, storyID, ordinal
func (_m *MockCarouselGenerator) GetSlideImage(ctx context.Context, storyID uuid.UUID, ordinal int) (models.SlideImage, error) {
	ret := _m.Called(ctx, storyID, ordinal)

	var r0 models.SlideImage
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, int) models.SlideImage); ok {
		r0 = rf(ctx, storyID, ordinal)
	} else {
		r0 = ret.Get(0).(models.SlideImage)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID, int) error); ok {
		r1 = rf(ctx, storyID, ordinal)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// CleanupCaches provides a mock function with no fields
func (_m *MockCarouselGenerator) CleanupCaches() models.CleanupResult {
	ret := _m.Called()

	var r0 models.CleanupResult
	if rf, ok := ret.Get(0).(func() models.CleanupResult); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(models.CleanupResult)
	}

	return r0
}

// NewMockCarouselGenerator creates a new instance of MockCarouselGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCarouselGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockCarouselGenerator {
	m := &MockCarouselGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.CarouselGenerator = (*MockCarouselGenerator)(nil)
