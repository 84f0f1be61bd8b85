// internal/delivery/mock.go
package delivery

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// MockClient simulates the delivery channel with a configurable success
// rate. Used by the worker in dev mode and by the seeder.
type MockClient struct {
	SuccessRate float64 // 0..1, defaults to 0.9 when zero
}

func (m *MockClient) Send(ctx context.Context, recipientID, text string) (string, error) {
	rate := m.SuccessRate
	if rate == 0 {
		rate = 0.9
	}
	if rand.Float64() < rate {
		return uuid.NewString(), nil
	}
	return "", fmt.Errorf("mock sending failed for %s", recipientID)
}

var _ Client = (*MockClient)(nil)
