package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nexusgate/internal/erpnext"

	"go.uber.org/zap"
)

// Activation poll defaults. A freshly created site's web tier needs a
// warm-up interval before token auth starts succeeding, so dependent setup
// must wait behind this probe.
const (
	DefaultPollAttempts     = 6
	DefaultPollInitialDelay = 2 * time.Second
	DefaultPollMaxDelay     = 5 * time.Second
	pollBackoffMultiplier   = 1.5
)

// PollResult is produced once per activation check and not stored.
type PollResult struct {
	Active    bool
	Attempts  int
	TotalWait time.Duration
	Err       error
}

// ActivationPoller probes a newly provisioned site until its issued
// credential pair is honored, with capped exponential backoff between
// attempts. It never blocks past MaxAttempts; callers bound total time
// through the attempt and delay caps, not cancellation.
type ActivationPoller struct {
	client       *erpnext.Client
	logger       *zap.Logger
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// sleep is swapped out in tests to record the wait sequence.
	sleep func(time.Duration)
}

func NewActivationPoller(client *erpnext.Client, logger *zap.Logger) *ActivationPoller {
	return &ActivationPoller{
		client:       client,
		logger:       logger,
		MaxAttempts:  DefaultPollAttempts,
		InitialDelay: DefaultPollInitialDelay,
		MaxDelay:     DefaultPollMaxDelay,
		sleep:        time.Sleep,
	}
}

// PollUntilActive issues a lightweight authenticated read against the new
// site until the credentials are live. A 2xx response, or any response that
// is not an authentication failure, counts as live: the instance is up and
// authenticating even if the particular call is semantically off. 401/403
// mean "not ready yet"; transport errors are transient and retried.
func (p *ActivationPoller) PollUntilActive(ctx context.Context, site, apiKey, apiSecret string) PollResult {
	delay := p.InitialDelay
	var total time.Duration

	p.logger.Info("Polling for credential activation", zap.String("site", site))

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		status, err := p.client.GetLoggedUser(ctx, site, apiKey, apiSecret)
		if err == nil && status != http.StatusUnauthorized && status != http.StatusForbidden {
			p.logger.Info("Credentials active",
				zap.String("site", site),
				zap.Int("attempts", attempt),
				zap.Duration("total_wait", total),
				zap.Int("status", status),
			)
			return PollResult{Active: true, Attempts: attempt, TotalWait: total}
		}
		if err != nil {
			p.logger.Warn("Activation probe failed, retrying",
				zap.String("site", site),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		if attempt < p.MaxAttempts {
			p.sleep(delay)
			total += delay
			delay = time.Duration(float64(delay) * pollBackoffMultiplier)
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}

	p.logger.Error("Credentials did not activate",
		zap.String("site", site),
		zap.Int("attempts", p.MaxAttempts),
		zap.Duration("total_wait", total),
	)
	return PollResult{
		Active:    false,
		Attempts:  p.MaxAttempts,
		TotalWait: total,
		Err:       fmt.Errorf("%w: %d attempts over %s", ErrActivationTimeout, p.MaxAttempts, total),
	}
}
