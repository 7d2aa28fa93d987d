// Package mocks holds testify mocks for the ports interfaces, in the
// expecter style used across the test suites.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockImageLoader is a mock type for the ports.ImageLoader type.
type MockImageLoader struct {
	mock.Mock
}

type MockImageLoader_Expecter struct {
	mock *mock.Mock
}

func (_m *MockImageLoader) EXPECT() *MockImageLoader_Expecter {
	return &MockImageLoader_Expecter{mock: &_m.Mock}
}

// TryLoad provides a mock function with given fields: ctx, url
func (_m *MockImageLoader) TryLoad(ctx context.Context, url string) error {
	ret := _m.Called(ctx, url)

	if len(ret) == 0 {
		panic("no return value specified for TryLoad")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, url)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockImageLoader_TryLoad_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'TryLoad'
type MockImageLoader_TryLoad_Call struct {
	*mock.Call
}

// TryLoad is a helper method to define mock.On call
//   - ctx context.Context
//   - url string
func (_e *MockImageLoader_Expecter) TryLoad(ctx interface{}, url interface{}) *MockImageLoader_TryLoad_Call {
	return &MockImageLoader_TryLoad_Call{Call: _e.mock.On("TryLoad", ctx, url)}
}

func (_c *MockImageLoader_TryLoad_Call) Run(run func(ctx context.Context, url string)) *MockImageLoader_TryLoad_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(string))
	})
	return _c
}

func (_c *MockImageLoader_TryLoad_Call) Return(_a0 error) *MockImageLoader_TryLoad_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockImageLoader_TryLoad_Call) RunAndReturn(run func(context.Context, string) error) *MockImageLoader_TryLoad_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockImageLoader creates a new instance of MockImageLoader. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockImageLoader(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageLoader {
	m := &MockImageLoader{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
