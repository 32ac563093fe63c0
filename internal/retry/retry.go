// Package retry is a generic transient-failure helper with exponential
// backoff. It has no archive knowledge; eligibility comes from
// errs.IsTransient.
package retry

import (
	"time"

	"github.com/sirupsen/logrus"

	"unpackrr/internal/errs"
)

// Config controls retry behavior. Immutable value.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// Multiplier scales the delay after each retry.
	Multiplier float64
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
}

// Default is the balanced preset.
func Default() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
}

// Quick gives up fast; suited to interactive checks.
func Quick() Config {
	return Config{
		MaxAttempts:  2,
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   1.5,
		MaxDelay:     time.Second,
	}
}

// Persistent keeps trying; suited to long unattended batches.
func Persistent() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
	}
}

// Do runs op, retrying transient failures per cfg. Permanent failures return
// immediately; after MaxAttempts total attempts the last error is returned.
func Do(cfg Config, op func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !errs.IsTransient(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			logrus.WithFields(logrus.Fields{
				"attempts": attempt,
			}).Debug("retries exhausted")
			return err
		}
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"max":     cfg.MaxAttempts,
			"wait":    delay,
		}).Warnf("transient failure, retrying: %v", err)
		time.Sleep(delay)
		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next > cfg.MaxDelay {
			next = cfg.MaxDelay
		}
		delay = next
	}
}
