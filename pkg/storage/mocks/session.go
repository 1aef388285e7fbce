// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/williamokano/bucketview/pkg/storage"
)

// MockSession is a mock implementation of the storage.Session interface
type MockSession struct {
	mock.Mock
}

// Driver provides a mock function with given fields:
func (m *MockSession) Driver() string {
	ret := m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// ListBuckets provides a mock function with given fields: ctx
func (m *MockSession) ListBuckets(ctx context.Context) ([]storage.Bucket, error) {
	ret := m.Called(ctx)

	var r0 []storage.Bucket
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]storage.Bucket, error)); ok {
		return rf(ctx)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]storage.Bucket)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// ListObjectsPage provides a mock function with given fields: ctx, bucket, maxKeys, token
func (m *MockSession) ListObjectsPage(ctx context.Context, bucket string, maxKeys int, token string) (*storage.ObjectPage, error) {
	ret := m.Called(ctx, bucket, maxKeys, token)

	var r0 *storage.ObjectPage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int, string) (*storage.ObjectPage, error)); ok {
		return rf(ctx, bucket, maxKeys, token)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*storage.ObjectPage)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// PutObject provides a mock function with given fields: ctx, bucket, key, body, size, contentType
func (m *MockSession) PutObject(ctx context.Context, bucket string, key string, body io.Reader, size int64, contentType string) error {
	ret := m.Called(ctx, bucket, key, body, size, contentType)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, io.Reader, int64, string) error); ok {
		r0 = rf(ctx, bucket, key, body, size, contentType)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetObject provides a mock function with given fields: ctx, bucket, key
func (m *MockSession) GetObject(ctx context.Context, bucket string, key string) (io.ReadCloser, error) {
	ret := m.Called(ctx, bucket, key)

	var r0 io.ReadCloser
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (io.ReadCloser, error)); ok {
		return rf(ctx, bucket, key)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(io.ReadCloser)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// DeleteObject provides a mock function with given fields: ctx, bucket, key
func (m *MockSession) DeleteObject(ctx context.Context, bucket string, key string) error {
	ret := m.Called(ctx, bucket, key)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, bucket, key)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// PresignGetObject provides a mock function with given fields: ctx, bucket, key, ttl
func (m *MockSession) PresignGetObject(ctx context.Context, bucket string, key string, ttl time.Duration) (string, error) {
	ret := m.Called(ctx, bucket, key, ttl)

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, time.Duration) (string, error)); ok {
		return rf(ctx, bucket, key, ttl)
	}
	r0 = ret.Get(0).(string)
	r1 = ret.Error(1)

	return r0, r1
}

// Close provides a mock function with given fields:
func (m *MockSession) Close() error {
	ret := m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockSession creates a new instance of MockSession
func NewMockSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSession {
	mock_1 := &MockSession{}
	mock_1.Mock.Test(t)

	t.Cleanup(func() { mock_1.AssertExpectations(t) })

	return mock_1
}
