package zone

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Process is a handle on one spawned game server process.
type Process interface {
	// Stop terminates the process. Safe to call after the process exited.
	Stop()
}

// Launcher starts game server processes. The exec implementation is used in
// production; tests substitute fakes to exercise the provisioner without
// real processes.
type Launcher interface {
	Launch(ctx context.Context, host string, port int) (Process, error)
}

// ExecLauncher runs the configured game server binary with the listen
// address on its command line.
type ExecLauncher struct {
	Binary   string
	Headless bool
	Logger   *logrus.Logger
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Stop() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

// Launch starts the binary as "<binary> <host> <port> [-headless]" and pipes
// its output through the zone's logger so spawned rooms share one log stream.
func (l *ExecLauncher) Launch(ctx context.Context, host string, port int) (Process, error) {
	args := []string{host, strconv.Itoa(port)}
	if l.Headless {
		args = append(args, "-headless")
	}
	cmd := exec.CommandContext(ctx, l.Binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", l.Binary, err)
	}

	entry := l.Logger.WithFields(logrus.Fields{"game": port, "pid": cmd.Process.Pid})
	go pipeLines(stdout, func(line string) { entry.Info(line) })
	go pipeLines(stderr, func(line string) { entry.Warn(line) })
	go func() {
		if err := cmd.Wait(); err != nil {
			entry.Debugf("game process exited: %v", err)
		}
	}()

	return &execProcess{cmd: cmd}, nil
}

func pipeLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}
