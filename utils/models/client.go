package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mouncefik/nbgen/utils/config"
)

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client sends prompts to a generative text service and returns validated,
// non-empty completions
type Client struct {
	sleep  Sleeper
	detect func(modelName string) Provider
}

// Option configures a Client
type Option func(*Client)

// WithSleeper replaces the backoff sleeper
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithProvider routes every model to p
func WithProvider(p Provider) Option {
	return func(c *Client) {
		c.detect = func(string) Provider { return p }
	}
}

// NewClient creates a completion client
func NewClient(opts ...Option) *Client {
	c := &Client{
		sleep:  sleepContext,
		detect: DetectProvider,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends req.Prompt to req.Model and returns the trimmed completion.
// Transient failures are retried up to req.MaxRetries times with exponential
// backoff starting at req.InitialDelay; every other failure returns at once.
// All failures are *Error values.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", newError(KindConfiguration, "API key is required", nil)
	}
	if strings.TrimSpace(req.Model) == "" {
		return "", newError(KindConfiguration, "model name is required", nil)
	}

	provider := c.detect(req.Model)
	if provider == nil {
		return "", newError(KindClientSetup, fmt.Sprintf("no provider available for model %s", req.Model), nil)
	}

	if err := provider.Configure(ctx, req.APIKey); err != nil {
		return "", newError(KindClientSetup, fmt.Sprintf("%s API configuration failed", provider.Name()), err)
	}

	params := DefaultGenerationParams().Merge(req.Generation)
	generator, err := provider.NewGenerator(req.Model, params, req.safetySettings())
	if err != nil {
		config.Logger().Errorf("Failed to instantiate model %s: %v", req.Model, err)
		return "", newError(KindClientSetup, fmt.Sprintf("failed to create model instance %s", req.Model), err)
	}
	config.VerboseLog("Model %s instantiated successfully", req.Model)

	return c.completeWithRetries(ctx, generator, req)
}

func (c *Client) completeWithRetries(ctx context.Context, generator Generator, req CompletionRequest) (string, error) {
	maxRetries := req.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := req.InitialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		config.VerboseLog("Sending prompt to %s (attempt %d/%d)...", req.Model, attempt+1, maxRetries+1)

		text, err := generator.Generate(ctx, req.Prompt)
		if err == nil {
			return text, nil
		}

		failure := asError(err)
		if ctx.Err() != nil {
			return "", newError(KindUnexpected, "request cancelled", ctx.Err())
		}
		if !failure.Kind.Retryable() {
			config.Logger().Errorf("API call failed with non-retryable %s error: %v", failure.Kind, failure)
			return "", failure
		}
		if attempt == maxRetries {
			config.Logger().Errorf("API call failed after %d retries: %v", maxRetries, failure)
			return "", newError(KindRetryBudgetExceeded, fmt.Sprintf("API call failed after %d retries", maxRetries), failure)
		}

		config.Logger().Warnf("API call failed with retryable error: %v. Retrying in %v...", failure, delay)
		if err := c.sleep(ctx, delay); err != nil {
			return "", newError(KindUnexpected, "request cancelled while waiting to retry", err)
		}
		delay *= 2
	}

	return "", newError(KindProtocol, "exited retry loop unexpectedly without success or specific error", nil)
}
