// Package gateway wraps the hosted language model used for message translation
// and conversation summaries. Every call is bounded by a per-attempt timeout,
// retried at most a configured number of times for transient failures, and
// short-circuited while the upstream keeps failing.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/geocoder89/medtranslate/internal/domain/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	OpTranslate = "translate"
	OpSummarize = "summarize"
)

// Observer receives call metrics. *observability.Prom satisfies it.
type Observer interface {
	ObserveGateway(op, result string, d time.Duration)
	ObserveGatewayRetry(op string)
}

type Config struct {
	Timeout          time.Duration
	MaxRetries       int
	FailureThreshold int
	Cooldown         time.Duration
	InitialBackoff   time.Duration
}

type Gateway struct {
	gen     Generator
	cfg     Config
	breaker *breaker
	obs     Observer
	tracer  trace.Tracer
	group   singleflight.Group
}

func New(gen Generator, cfg Config, obs Observer) *Gateway {
	if gen == nil {
		gen = Disabled()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 250 * time.Millisecond
	}

	return &Gateway{
		gen: gen,
		cfg: cfg,
		breaker: newBreaker(breakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			Cooldown:         cfg.Cooldown,
		}),
		obs:    obs,
		tracer: otel.Tracer("medtranslate/gateway"),
	}
}

func (g *Gateway) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(targetLanguage) == "" {
		targetLanguage = message.DefaultLanguage
	}
	return g.call(ctx, OpTranslate, translatePrompt(text, targetLanguage))
}

// Summarize sends the ordered ledger to the model. Identical concurrent requests
// for the same conversation state share one model call.
func (g *Gateway) Summarize(ctx context.Context, msgs []message.Message) (string, error) {
	if len(msgs) == 0 {
		return "", ErrEmptyConversation
	}

	last := msgs[len(msgs)-1]
	key := fmt.Sprintf("%d:%d:%d", last.ConversationID, len(msgs), last.ID)
	prompt := summaryPrompt(msgs)

	// detached so one caller's cancellation does not fail the others
	shared := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (any, error) {
		return g.call(shared, OpSummarize, prompt)
	})

	select {
	case <-ctx.Done():
		return "", asError(OpSummarize, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (g *Gateway) call(ctx context.Context, op, prompt string) (out string, err error) {
	ctx, span := g.tracer.Start(ctx, "gateway."+op)
	defer span.End()

	start := time.Now()
	result := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if g.obs != nil {
			g.obs.ObserveGateway(op, result, time.Since(start))
		}
	}()

	if !g.breaker.allow() {
		result = "circuit_open"
		return "", &Error{Op: op, Retryable: false, Err: ErrCircuitOpen}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.cfg.InitialBackoff

	attempts := 0
	out, err = backoff.Retry(ctx, func() (string, error) {
		attempts++
		if attempts > 1 && g.obs != nil {
			g.obs.ObserveGatewayRetry(op)
		}
		return g.attempt(ctx, op, prompt)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(g.cfg.MaxRetries+1)),
	)
	span.SetAttributes(attribute.Int("gateway.attempts", attempts))

	if err != nil {
		gerr := asError(op, err)
		g.breaker.record(breakerOutcome(gerr))
		if errors.Is(gerr, context.DeadlineExceeded) {
			result = "timeout"
		} else {
			result = "error"
		}
		return "", gerr
	}

	g.breaker.record(outcomeSuccess)
	return out, nil
}

func (g *Gateway) attempt(ctx context.Context, op, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	text, err := g.gen.Generate(attemptCtx, prompt)
	if err != nil {
		gerr := asError(op, err)
		if !gerr.Retryable {
			return "", backoff.Permanent(gerr)
		}
		return "", gerr
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", backoff.Permanent(&Error{Op: op, Err: ErrEmptyOutput})
	}
	return text, nil
}
