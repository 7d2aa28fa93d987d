package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockClipboard is a mock type for the ports.Clipboard type.
type MockClipboard struct {
	mock.Mock
}

type MockClipboard_Expecter struct {
	mock *mock.Mock
}

func (_m *MockClipboard) EXPECT() *MockClipboard_Expecter {
	return &MockClipboard_Expecter{mock: &_m.Mock}
}

// Write provides a mock function with given fields: ctx, text
func (_m *MockClipboard) Write(ctx context.Context, text string) error {
	ret := _m.Called(ctx, text)

	if len(ret) == 0 {
		panic("no return value specified for Write")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, text)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockClipboard_Write_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Write'
type MockClipboard_Write_Call struct {
	*mock.Call
}

// Write is a helper method to define mock.On call
//   - ctx context.Context
//   - text string
func (_e *MockClipboard_Expecter) Write(ctx interface{}, text interface{}) *MockClipboard_Write_Call {
	return &MockClipboard_Write_Call{Call: _e.mock.On("Write", ctx, text)}
}

func (_c *MockClipboard_Write_Call) Run(run func(ctx context.Context, text string)) *MockClipboard_Write_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(string))
	})
	return _c
}

func (_c *MockClipboard_Write_Call) Return(_a0 error) *MockClipboard_Write_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockClipboard_Write_Call) RunAndReturn(run func(context.Context, string) error) *MockClipboard_Write_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockClipboard creates a new instance of MockClipboard. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockClipboard(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClipboard {
	m := &MockClipboard{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
