package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"crm-segment-engine/internal/segment"
)

// LogAppender is the slice of the store the sender needs.
type LogAppender interface {
	AppendCampaignLog(ctx context.Context, shop string, records []segment.MessageRecord) error
}

// Sender runs one send-campaign operation: vendor call per recipient, then
// an append-only log write of the per-recipient outcomes.
type Sender struct {
	vendor Vendor
	store  LogAppender
	now    func() time.Time
}

func NewSender(vendor Vendor, store LogAppender) *Sender {
	return &Sender{vendor: vendor, store: store, now: time.Now}
}

// Send delivers subject/body to each recipient and returns the resulting
// log records. A vendor transport error marks that recipient FAILED rather
// than aborting the batch.
func (s *Sender) Send(ctx context.Context, shop, subject, body string, recipients []segment.Customer) ([]segment.MessageRecord, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients selected")
	}

	records := make([]segment.MessageRecord, 0, len(recipients))
	for _, c := range recipients {
		status, err := s.vendor.Send(ctx, Message{To: c.Email, Name: c.Name, Subject: subject, Body: body})
		if err != nil {
			log.Warn().Err(err).Str("email", c.Email).Msg("vendor send error")
			status = segment.StatusFailed
		}
		records = append(records, segment.MessageRecord{
			CustName:       c.Name,
			CustEmail:      c.Email,
			Status:         status,
			MessageSubject: subject,
			MessageBody:    body,
			Timestamp:      s.now().UnixMilli(),
		})
	}

	if err := s.store.AppendCampaignLog(ctx, shop, records); err != nil {
		return nil, fmt.Errorf("append campaign log: %w", err)
	}
	return records, nil
}
