package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/policy"
)

// LoadCancellationPolicy builds the refund schedule from environment
// variables, falling back to the built-in default schedule when none
// are set.
//
// CANCEL_TIERS is a comma separated list of "hours:percent" pairs,
// e.g. "168:80,72:50,48:20" meaning 80% refund at 7+ days before
// check-in, 50% at 3+ days, 20% at 2+ days and nothing closer in.
// CANCEL_GRACE_MINUTES grants a full refund within the given number
// of minutes after confirmation regardless of the tiers.
func LoadCancellationPolicy() policy.CancellationPolicy {
	spec := strings.TrimSpace(getenv("CANCEL_TIERS", ""))
	if spec == "" {
		return policy.Default()
	}

	p := policy.CancellationPolicy{
		GracePeriod:        time.Duration(intOr("CANCEL_GRACE_MINUTES", 60)) * time.Minute,
		GraceRefundPercent: 100,
	}
	for _, part := range strings.Split(spec, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			log.Fatalf("invalid CANCEL_TIERS entry: %q", part)
		}
		hours, err := strconv.Atoi(fields[0])
		if err != nil || hours < 0 {
			log.Fatalf("invalid hours in CANCEL_TIERS entry: %q", part)
		}
		percent, err := strconv.Atoi(fields[1])
		if err != nil || percent < 0 || percent > 100 {
			log.Fatalf("invalid percent in CANCEL_TIERS entry: %q", part)
		}
		p.Tiers = append(p.Tiers, policy.Tier{
			MinHoursBeforeCheckIn: hours,
			RefundPercent:         percent,
		})
	}
	if err := p.Validate(); err != nil {
		log.Fatalf("invalid cancellation policy: %v", err)
	}
	return p
}
