package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"carousel-service/internal/social"
)

// MockPublisher is a mock type for the Publisher type
type MockPublisher struct {
	mock.Mock
}

// PublishCarousel provides a mock function with given fields: ctx, media, caption
func (_m *MockPublisher) PublishCarousel(ctx context.Context, media []social.MediaItem, caption string) (string, error) {
	ret := _m.Called(ctx, media, caption)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, []social.MediaItem, string) string); ok {
		r0 = rf(ctx, media, caption)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, []social.MediaItem, string) error); ok {
		r1 = rf(ctx, media, caption)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// NewMockPublisher creates a new instance of MockPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockPublisher {
	m := &MockPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ social.Publisher = (*MockPublisher)(nil)
