package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	logs "github.com/danmuck/cortexctl/internal/logging"
	"github.com/danmuck/cortexctl/internal/tools"
)

var ErrEmptyCommand = errors.New("trigger: exec command required")

// Bell rings the terminal bell.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	if out == nil {
		out = os.Stdout
	}
	return &Bell{out: out}
}

func (b *Bell) Fire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.out, "\a")
	return err
}

func (b *Bell) Close() error {
	return nil
}

// Exec runs a command line per fire, e.g. an input synthesiser.
type Exec struct {
	argv    []string
	timeout time.Duration
	runner  tools.CommandRunner
}

func NewExec(cfg ExecConfig) (*Exec, error) {
	return NewExecWithRunner(cfg, tools.ExecRunner{})
}

func NewExecWithRunner(cfg ExecConfig, runner tools.CommandRunner) (*Exec, error) {
	argv := make([]string, 0, len(cfg.Command))
	for _, arg := range cfg.Command {
		if strings.TrimSpace(arg) != "" {
			argv = append(argv, arg)
		}
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Exec{argv: argv, timeout: timeout, runner: runner}, nil
}

func (e *Exec) Fire() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	res, err := e.runner.Run(ctx, e.argv[0], e.argv[1:]...)
	if err != nil {
		return fmt.Errorf("trigger: exec %q exit=%d: %w: %s", strings.Join(e.argv, " "), res.ExitCode, err, strings.TrimSpace(string(res.Stderr)))
	}
	logs.Debugf("trigger.Exec.Fire argv=%q", e.argv)
	return nil
}

func (e *Exec) Close() error {
	return nil
}

// Log only records the detection.
type Log struct{}

func (Log) Fire() error {
	logs.Infof("trigger.Log.Fire detection")
	return nil
}

func (Log) Close() error {
	return nil
}
