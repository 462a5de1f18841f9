package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/sandeepkv93/eva/internal/docstore"
)

var ErrNoScheduler = errors.New("schedule: no scheduler command configured")

// Scheduler orders tasks within the windows of their time segments.
type Scheduler interface {
	Schedule(ctx context.Context, groups []docstore.SegmentTasks) ([]Scheduled, error)
}

// CommandScheduler runs an external program that reads the request on stdin
// and writes the response on stdout.
type CommandScheduler struct {
	Command string
	Args    []string
	Logger  *log.Logger
}

var _ Scheduler = (*CommandScheduler)(nil)

func (c *CommandScheduler) Schedule(ctx context.Context, groups []docstore.SegmentTasks) ([]Scheduled, error) {
	if strings.TrimSpace(c.Command) == "" {
		return nil, ErrNoScheduler
	}
	req, err := EncodeRequest(groups)
	if err != nil {
		return nil, fmt.Errorf("encode schedule request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Stdin = bytes.NewReader(req)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run scheduler %s: %w: %s", c.Command, err, msg)
		}
		return nil, fmt.Errorf("run scheduler %s: %w", c.Command, err)
	}
	if c.Logger != nil && stderr.Len() > 0 {
		c.Logger.Printf("scheduler %s: %s", c.Command, strings.TrimSpace(stderr.String()))
	}
	return DecodeResponse(stdout.Bytes())
}
