package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"carousel-service/internal/messaging"
)

// MockResultNotifier is a mock type for the ResultNotifier type
type MockResultNotifier struct {
	mock.Mock
}

// NotifyResult provides a mock function with given fields: ctx, result
func (_m *MockResultNotifier) NotifyResult(ctx context.Context, result messaging.CarouselResultPayload) error {
	ret := _m.Called(ctx, result)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, messaging.CarouselResultPayload) error); ok {
		r0 = rf(ctx, result)
	} else {
		err := ret.Error(0)
		if err != nil {
			r0 = err
		}
	}

	return r0
}

// NewMockResultNotifier creates a new instance of MockResultNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockResultNotifier(t interface {
	mock.TestingT
	Helper()
}) *MockResultNotifier {
	m := &MockResultNotifier{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ messaging.ResultNotifier = (*MockResultNotifier)(nil)
