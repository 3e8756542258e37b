package pipeline

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSleep(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
}

func TestExecExecutorParentDeadline(t *testing.T) {
	requireSleep(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := ExecExecutor{}.Run(ctx, ".", []string{"sleep", "5"})
	if err == nil {
		t.Fatal("Expected error when the parent deadline expires")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	if strings.Contains(err.Error(), "0s") {
		t.Errorf("Expected no zero timeout in message, got %q", err.Error())
	}
	if res.ExitCode != -1 {
		t.Errorf("Expected exit code -1, got %d", res.ExitCode)
	}
}

func TestExecExecutorStepTimeout(t *testing.T) {
	requireSleep(t)
	_, err := ExecExecutor{Timeout: 50 * time.Millisecond}.Run(context.Background(), ".", []string{"sleep", "5"})
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if err.Error() != "command timeout after 50ms" {
		t.Errorf("Expected step timeout message, got %q", err.Error())
	}
}

func TestExecExecutorEmptyCommand(t *testing.T) {
	if _, err := (ExecExecutor{}).Run(context.Background(), ".", nil); err == nil {
		t.Error("Expected error for empty command")
	}
}
