package campaign

import (
	"context"
	"math/rand"
	"sync"

	"crm-segment-engine/internal/segment"
)

// Message is one outbound delivery attempt.
type Message struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Vendor is the delivery provider boundary. It reports per-recipient
// status; it does not write the campaign log.
type Vendor interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SimulatedVendor stands in for a real provider, succeeding at a fixed
// rate. The upstream provider this mirrors delivered roughly 9 in 10
// messages.
type SimulatedVendor struct {
	mu          sync.Mutex
	r           *rand.Rand
	successRate float64
}

func NewSimulatedVendor(seed int64, successRate float64) *SimulatedVendor {
	if successRate <= 0 || successRate > 1 {
		successRate = 0.9
	}
	return &SimulatedVendor{r: rand.New(rand.NewSource(seed)), successRate: successRate}
}

func (v *SimulatedVendor) Send(_ context.Context, _ Message) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.r.Float64() < v.successRate {
		return segment.StatusSent, nil
	}
	return segment.StatusFailed, nil
}
