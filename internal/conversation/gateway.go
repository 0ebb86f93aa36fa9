package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/consultorio-ai/citabot/internal/booking"
	"github.com/consultorio-ai/citabot/internal/observability/metrics"
	"github.com/consultorio-ai/citabot/internal/retry"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

// Gateway invokes the language model with a conversation history and decodes
// the reply into an Outcome. Decoding happens here and nowhere else.
type Gateway struct {
	model         ModelClient
	enforceSchema bool
	policy        retry.Policy
	logger        *logging.Logger
	metrics       *metrics.Metrics
}

// NewGateway wires a model client behind the rate-limit retry policy. A
// gateway without a model cannot work, so a nil model panics.
func NewGateway(model ModelClient, enforceSchema bool, policy retry.Policy, logger *logging.Logger, m *metrics.Metrics) *Gateway {
	if model == nil {
		panic("conversation: gateway requires a model client")
	}
	if logger == nil {
		logger = logging.Default()
	}
	policy.OnExhausted = retry.Fail
	return &Gateway{
		model:         model,
		enforceSchema: enforceSchema,
		policy:        policy,
		logger:        logger,
		metrics:       m,
	}
}

// Generate runs one model turn. Rate-limited calls are retried with
// exponential backoff; exhaustion or any other model failure is returned to
// the caller.
func (g *Gateway) Generate(ctx context.Context, history []Entry) (Outcome, error) {
	start := time.Now()

	var raw string
	err := retry.Do(ctx, g.policy, g.logger, "gemini.generate", func(ctx context.Context) error {
		var genErr error
		raw, genErr = g.model.Generate(ctx, history)
		return genErr
	})
	if err != nil {
		g.metrics.ObserveGatewayLatency("error", time.Since(start).Seconds())
		return Outcome{}, err
	}

	outcome, err := g.decode(raw)
	if err != nil {
		g.metrics.ObserveGatewayLatency("error", time.Since(start).Seconds())
		return Outcome{}, err
	}
	g.metrics.ObserveGatewayLatency(outcome.Kind.String(), time.Since(start).Seconds())
	return outcome, nil
}

// decode maps raw model text to the tagged Outcome. With schema enforcement
// the reply must parse as a draft; without it, anything that does not look
// like a JSON object is a conversational reply.
func (g *Gateway) decode(raw string) (Outcome, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Outcome{Kind: OutcomeEmpty}, nil
	}

	if g.enforceSchema {
		var draft booking.Draft
		if err := json.Unmarshal([]byte(trimmed), &draft); err != nil {
			return Outcome{}, fmt.Errorf("conversation: structured reply was not valid JSON: %w", err)
		}
		return Outcome{Kind: OutcomeAppointment, Draft: draft}, nil
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var draft booking.Draft
		if err := json.Unmarshal([]byte(trimmed), &draft); err == nil {
			return Outcome{Kind: OutcomeAppointment, Draft: draft}, nil
		}
		g.logger.Warn("model reply looked structured but did not parse, relaying as text")
	}
	return Outcome{Kind: OutcomeReply, Reply: raw}, nil
}
