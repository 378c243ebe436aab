package segment

import (
	"fmt"
	"time"
)

// HighValueSpendThreshold marks a customer as high-value for delivery-rate
// reporting.
const HighValueSpendThreshold = 10000

// RecentPurchaseWindow is the trailing window for the recent-purchaser
// cohort.
const RecentPurchaseWindow = 7 * 24 * time.Hour

// Stats are the numeric campaign aggregates. Rates are fractions in [0,1];
// every denominator is guarded so an empty log or an empty cohort yields 0,
// never NaN.
type Stats struct {
	AudienceSize          int     `json:"audienceSize"`
	SentCount             int     `json:"sentCount"`
	FailedCount           int     `json:"failedCount"`
	DeliveryRate          float64 `json:"deliveryRate"`
	HighValueCount        int     `json:"highValueCount"`
	HighValueDeliveryRate float64 `json:"highValueDeliveryRate"`
	RecentPurchaserCount  int     `json:"recentPurchaserCount"`
}

// Summarize derives delivery and audience aggregates from the campaign log
// and the customer collection. now anchors the recency window.
func Summarize(records []MessageRecord, customers []Customer, now time.Time) Stats {
	st := Stats{AudienceSize: len(customers)}

	for _, r := range records {
		switch r.Status {
		case StatusSent:
			st.SentCount++
		case StatusFailed:
			st.FailedCount++
		}
	}
	if total := st.SentCount + st.FailedCount; total > 0 {
		st.DeliveryRate = float64(st.SentCount) / float64(total)
	}

	highValue := map[string]bool{}
	cutoff := now.Add(-RecentPurchaseWindow)
	for _, c := range customers {
		if c.Spends > HighValueSpendThreshold {
			highValue[c.Email] = true
		}
		if !c.LastVisit.IsZero() && c.LastVisit.After(cutoff) {
			st.RecentPurchaserCount++
		}
	}
	st.HighValueCount = len(highValue)

	if st.HighValueCount > 0 {
		delivered := 0
		for _, r := range records {
			if r.Status == StatusSent && highValue[r.CustEmail] {
				delivered++
			}
		}
		st.HighValueDeliveryRate = float64(delivered) / float64(st.HighValueCount)
	}

	return st
}

// FormatRate renders a fraction as a percentage with one decimal, e.g.
// 0.667 -> "66.7%".
func FormatRate(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}
