package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	ports "github.com/jsamuelsen/quote-presenter/internal/ports"
)

// MockHealthRegistry is a mock type for the ports.HealthRegistry type.
type MockHealthRegistry struct {
	mock.Mock
}

type MockHealthRegistry_Expecter struct {
	mock *mock.Mock
}

func (_m *MockHealthRegistry) EXPECT() *MockHealthRegistry_Expecter {
	return &MockHealthRegistry_Expecter{mock: &_m.Mock}
}

// CheckAll provides a mock function with given fields: ctx
func (_m *MockHealthRegistry) CheckAll(ctx context.Context) *ports.HealthResult {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for CheckAll")
	}

	var r0 *ports.HealthResult
	if rf, ok := ret.Get(0).(func(context.Context) *ports.HealthResult); ok {
		r0 = rf(ctx)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ports.HealthResult)
	}

	return r0
}

// MockHealthRegistry_CheckAll_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'CheckAll'
type MockHealthRegistry_CheckAll_Call struct {
	*mock.Call
}

// CheckAll is a helper method to define mock.On call
//   - ctx context.Context
func (_e *MockHealthRegistry_Expecter) CheckAll(ctx interface{}) *MockHealthRegistry_CheckAll_Call {
	return &MockHealthRegistry_CheckAll_Call{Call: _e.mock.On("CheckAll", ctx)}
}

func (_c *MockHealthRegistry_CheckAll_Call) Return(_a0 *ports.HealthResult) *MockHealthRegistry_CheckAll_Call {
	_c.Call.Return(_a0)
	return _c
}

// Register provides a mock function with given fields: checker
func (_m *MockHealthRegistry) Register(checker ports.HealthChecker) error {
	ret := _m.Called(checker)

	if len(ret) == 0 {
		panic("no return value specified for Register")
	}

	return ret.Error(0)
}

// MockHealthRegistry_Register_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Register'
type MockHealthRegistry_Register_Call struct {
	*mock.Call
}

// Register is a helper method to define mock.On call
//   - checker ports.HealthChecker
func (_e *MockHealthRegistry_Expecter) Register(checker interface{}) *MockHealthRegistry_Register_Call {
	return &MockHealthRegistry_Register_Call{Call: _e.mock.On("Register", checker)}
}

func (_c *MockHealthRegistry_Register_Call) Return(_a0 error) *MockHealthRegistry_Register_Call {
	_c.Call.Return(_a0)
	return _c
}

// RegisterOptional provides a mock function with given fields: checker
func (_m *MockHealthRegistry) RegisterOptional(checker ports.HealthChecker) error {
	ret := _m.Called(checker)

	if len(ret) == 0 {
		panic("no return value specified for RegisterOptional")
	}

	return ret.Error(0)
}

// MockHealthRegistry_RegisterOptional_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'RegisterOptional'
type MockHealthRegistry_RegisterOptional_Call struct {
	*mock.Call
}

// RegisterOptional is a helper method to define mock.On call
//   - checker ports.HealthChecker
func (_e *MockHealthRegistry_Expecter) RegisterOptional(checker interface{}) *MockHealthRegistry_RegisterOptional_Call {
	return &MockHealthRegistry_RegisterOptional_Call{Call: _e.mock.On("RegisterOptional", checker)}
}

func (_c *MockHealthRegistry_RegisterOptional_Call) Return(_a0 error) *MockHealthRegistry_RegisterOptional_Call {
	_c.Call.Return(_a0)
	return _c
}

// NewMockHealthRegistry creates a new instance of MockHealthRegistry. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockHealthRegistry(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockHealthRegistry {
	m := &MockHealthRegistry{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
