package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"carousel-service/internal/models"
	"carousel-service/internal/renderer"
)

// MockRenderer is a mock type for the Renderer type
type MockRenderer struct {
	mock.Mock
}

// Render provides a mock function with given fields: ctx, markup, opts
func (_m *MockRenderer) Render(ctx context.Context, markup string, opts models.RenderOptions) ([]byte, error) {
	ret := _m.Called(ctx, markup, opts)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string, models.RenderOptions) []byte); ok {
		r0 = rf(ctx, markup, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, models.RenderOptions) error); ok {
		r1 = rf(ctx, markup, opts)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// NewMockRenderer creates a new instance of MockRenderer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockRenderer(t interface {
	mock.TestingT
	Helper()
}) *MockRenderer {
	m := &MockRenderer{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ renderer.Renderer = (*MockRenderer)(nil)
