package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Execute waits for output pipes after the
// process is killed, e.g. when a child inherited stdout.
const waitDelay = 500 * time.Millisecond

// Executor runs plugin executables, one process per request.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor that kills plugins after timeoutMs.
func NewExecutor(timeoutMs int) *Executor {
	return &Executor{timeout: time.Duration(timeoutMs) * time.Millisecond}
}

// Execute writes req as JSON to the plugin's stdin and decodes its stdout as
// a Response. The plugin runs in its own directory with HOWLONG_EVENT and
// HOWLONG_PLUGIN set, and is killed when ctx ends or the timeout passes.
// The manifest config is attached when req carries none.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	name := plugin.Manifest.Name
	if req.Config == nil {
		req.Config = plugin.Manifest.Config
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", req.Event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Env = append(os.Environ(), "HOWLONG_EVENT="+req.Event, "HOWLONG_PLUGIN="+name)
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(body)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("plugin %s: timeout after %v", name, e.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("plugin %s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}

	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, fmt.Errorf("plugin %s: parse plugin response %q: %w", name, stdout.String(), err)
	}
	return &resp, nil
}
