package resolver

import (
	"github.com/stretchr/testify/mock"

	"github.com/dnstrail/dnstrail/model"
)

// MockRecordClient is a mock implementation of RecordClient for tests
type MockRecordClient struct {
	mock.Mock
}

// Query implements RecordClient
func (m *MockRecordClient) Query(domain string, rType model.RecordType) Outcome {
	args := m.Called(domain, rType)

	return args.Get(0).(Outcome)
}
