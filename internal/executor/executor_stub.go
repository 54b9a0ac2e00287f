//go:build !linux
// +build !linux

package executor

import (
	"context"

	"github.com/genricoloni/mprisbar/internal/domain"
	"go.uber.org/zap"
)

// StubExecutor is a placeholder for platforms without realtime signals
type StubExecutor struct {
	logger *zap.Logger
}

// NewExecutor creates a stub executor for unsupported platforms
func NewExecutor(logger *zap.Logger, _ domain.Config) (*StubExecutor, error) {
	logger.Warn("Host refresh signal is not implemented for this platform")
	return &StubExecutor{logger: logger}, nil
}

// SignalRefresh only logs on unsupported platforms
func (e *StubExecutor) SignalRefresh(ctx context.Context) {
	e.logger.Debug("Skipping refresh signal on unsupported platform")
}
