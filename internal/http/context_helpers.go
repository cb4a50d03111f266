package httpx

import (
	"context"

	"github.com/Chavhanmoin/CrackBatu/internal/domain/access"
)

// decisionKey is an unexported context key type to avoid collisions across packages.
type decisionKey struct{}

// SetDecisionInContext returns a child context that carries the gate decision.
func SetDecisionInContext(ctx context.Context, d access.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext returns the gate decision and a boolean indicating presence.
func DecisionFromContext(ctx context.Context) (access.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(access.Decision)
	return d, ok
}
