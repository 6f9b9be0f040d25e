// Package llm turns free-text day descriptions into structured tasks. The
// scheduling engine never talks to a model directly; it accepts tasks from
// any Provider, so the LLM stays an injected capability.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

// ErrParseFailed means no provider could extract tasks from the message.
var ErrParseFailed = errors.New("task parsing failed")

// Provider extracts tasks from a natural-language message.
type Provider interface {
	ParseTasks(ctx context.Context, message string) ([]cogsched.Task, error)
	Name() string
}

// Chain tries providers in order and returns the first success, the same way
// model fallback chains degrade from the primary model to lighter ones.
type Chain struct {
	providers []Provider
}

// NewChain builds a fallback chain from the given providers.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Name lists the chain members.
func (c *Chain) Name() string {
	name := "chain"
	for _, p := range c.providers {
		name += ":" + p.Name()
	}
	return name
}

// ParseTasks walks the chain. Every provider failing surfaces the last error
// wrapped in ErrParseFailed.
func (c *Chain) ParseTasks(ctx context.Context, message string) ([]cogsched.Task, error) {
	var lastErr error
	for _, p := range c.providers {
		tasks, err := p.ParseTasks(ctx, message)
		if err == nil {
			return tasks, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return nil, fmt.Errorf("%w: %v", ErrParseFailed, lastErr)
}
