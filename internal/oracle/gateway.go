package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Gateway decides whether a running command is blocked on a prompt and, if
// so, what to type. It never makes up input itself.
type Gateway struct {
	oracle InputOracle
	logger *slog.Logger
}

// NewGateway wraps an input oracle
func NewGateway(o InputOracle, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{oracle: o, logger: logger.With("component", "gateway")}
}

// Decide asks the oracle about output that has not been shown to it before.
// ok is false when no input should be sent. The returned input is literal;
// the caller adds the newline.
func (g *Gateway) Decide(ctx context.Context, output string) (input string, ok bool, err error) {
	answer, err := g.oracle.ProvideInput(ctx, output)
	if err != nil {
		return "", false, fmt.Errorf("input oracle: %w", err)
	}
	if strings.TrimSpace(answer) == "" || strings.TrimSpace(answer) == NoInput {
		g.logger.Debug("no input needed")
		return "", false, nil
	}
	g.logger.Info("providing input", "input", answer)
	return answer, true, nil
}
