//go:build linux
// +build linux

package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/genricoloni/mprisbar/internal/domain"
	"go.uber.org/zap"
)

const (
	signalBinary  = "pkill"
	signalTimeout = 5 * time.Second
)

// LinuxExecutor notifies the bar host with a realtime signal
type LinuxExecutor struct {
	logger *zap.Logger
	binary string
	args   []string
}

// NewExecutor creates a new platform-specific refresh signaler (Linux implementation)
func NewExecutor(logger *zap.Logger, cfg domain.Config) (*LinuxExecutor, error) {
	if !commandExists(signalBinary) {
		// Not fatal: the cover is still cached, the host just won't be poked
		logger.Warn("Refresh signal command not found, host will not be notified",
			zap.String("binary", signalBinary))
	}

	args := signalArgs(cfg.GetRefreshSignal(), cfg.GetSignalProcess())
	logger.Info("Refresh signaler configured",
		zap.String("binary", signalBinary),
		zap.Strings("args", args))

	return &LinuxExecutor{
		logger: logger,
		binary: signalBinary,
		args:   args,
	}, nil
}

// signalArgs builds the pkill arguments, e.g. -RTMIN+5 waybar
func signalArgs(signal int, process string) []string {
	return []string{"-RTMIN+" + strconv.Itoa(signal), process}
}

// commandExists checks if a binary exists in PATH
func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// SignalRefresh sends the refresh signal in the background. Failures are
// logged and otherwise ignored.
func (e *LinuxExecutor) SignalRefresh(ctx context.Context) {
	go func() {
		if err := e.run(ctx); err != nil {
			e.logger.Warn("Failed to send refresh signal", zap.Error(err))
		}
	}()
}

func (e *LinuxExecutor) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, signalTimeout)
	defer cancel()

	e.logger.Debug("Sending refresh signal",
		zap.String("command", e.binary),
		zap.Strings("args", e.args))

	cmd := exec.CommandContext(ctx, e.binary, e.args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (output: %s)", e.binary, e.args, err, string(output))
	}
	return nil
}
