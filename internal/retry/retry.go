// go-suear
// Copyright (c) 2026 The go-suear Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-suear.
//
// go-suear is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-suear is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-suear; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package retry provides caller-side retry loops around session operations
package retry

import (
	"context"
	"fmt"
	"time"

	suear "github.com/suearlabs/go-suear"
)

// Operation is a function that can be retried.
// Returns: data, shouldRetry, error
//   - shouldRetry false with a nil error: success, data is returned
//   - shouldRetry true: another attempt is made; a non-nil error is kept
//     as the last failure
//   - shouldRetry false with a non-nil error: permanent failure, returned as is
type Operation[T any] func(ctx context.Context) (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry     func(attempt int, err error)
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// DefaultConfig returns three retries half a second apart
func DefaultConfig(description string) Config {
	return Config{
		Description: description,
		MaxRetries:  3,
		RetryDelay:  500 * time.Millisecond,
	}
}

// Classify adapts fn so that errors suear.IsRetryable accepts are retried
// and every other error stops the loop
func Classify[T any](fn func(ctx context.Context) (T, error)) Operation[T] {
	return func(ctx context.Context) (T, bool, error) {
		result, err := fn(ctx)
		if err != nil {
			return result, suear.IsRetryable(err), err
		}
		return result, false, nil
	}
}

// WithRetry runs operation up to MaxRetries+1 times
func WithRetry[T any](ctx context.Context, config Config, operation Operation[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation(ctx)
		if !shouldRetry {
			if err != nil {
				return zero, err
			}
			return result, nil
		}
		lastErr = err

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err)
		}

		if err := sleep(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}

	return zero, exhausted(config.Description, lastErr)
}

// TimeoutRetry repeats operation until it succeeds, fails permanently or
// timeout elapses
func TimeoutRetry[T any](ctx context.Context, timeout time.Duration, operation Operation[T]) (T, error) {
	var zero T
	var lastErr error
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		result, shouldRetry, err := operation(ctx)
		if !shouldRetry {
			if err != nil {
				return zero, err
			}
			return result, nil
		}
		lastErr = err

		// Small delay before next attempt
		if err := sleep(ctx, 10*time.Millisecond); err != nil {
			return zero, err
		}
	}

	if lastErr != nil {
		return zero, fmt.Errorf("timeout retry: %w", lastErr)
	}
	return zero, suear.NewTimeoutError("timeoutRetry", "")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func exhausted(description string, lastErr error) error {
	if description == "" {
		description = "operation"
	}
	if lastErr == nil {
		return fmt.Errorf("%s: retries exhausted", description)
	}
	return fmt.Errorf("%s: retries exhausted: %w", description, lastErr)
}
