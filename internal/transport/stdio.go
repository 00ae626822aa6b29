package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
	"github.com/dotsetlabs/bellwether/internal/logging"
)

const stderrRingCapacity = 200

// StdioDriver spawns a child process and frames messages as
// newline-delimited JSON over its stdin/stdout, per §4.1. Stderr is
// captured separately into a ring buffer so a terminal failure can report
// a tail without holding the whole stream in memory.
type StdioDriver struct {
	command string
	args    []string
	env     []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	writeMu sync.Mutex

	inbound chan jsonrpc.Message
	errs    chan *jsonrpc.TransportError

	stderrRing *stderrRing

	closeOnce sync.Once
}

// NewStdioDriver creates a driver that will spawn command with args and
// env (formatted as "KEY=VALUE" pairs) once Connect is called.
func NewStdioDriver(command string, args []string, env []string) *StdioDriver {
	return &StdioDriver{
		command:    command,
		args:       args,
		env:        env,
		inbound:    make(chan jsonrpc.Message, 64),
		errs:       make(chan *jsonrpc.TransportError, 4),
		stderrRing: newStderrRing(stderrRingCapacity),
	}
}

func (d *StdioDriver) Connect(ctx context.Context) error {
	logging.Debug("Transport", "stdio: spawning %s %v", d.command, d.args)

	cmd := exec.Command(d.command, d.args...)
	if len(d.env) > 0 {
		cmd.Env = append(cmd.Environ(), d.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return d.fatal(jsonrpc.CategoryConnectionRefused, false, fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return d.fatal(jsonrpc.CategoryConnectionRefused, false, fmt.Errorf("stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return d.fatal(jsonrpc.CategoryConnectionRefused, false, fmt.Errorf("stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return d.fatal(jsonrpc.CategoryConnectionRefused, false, fmt.Errorf("start %s: %w", d.command, err))
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = stdout

	go d.readStderr(stderr)
	go d.readStdout(stdout)
	go d.waitExit()

	return nil
}

func (d *StdioDriver) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		d.stderrRing.add(scanner.Text())
	}
}

func (d *StdioDriver) readStdout(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg jsonrpc.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			d.sendErr(&jsonrpc.TransportError{
				Category:        jsonrpc.CategoryProtocolViolation,
				LikelyServerBug: true,
				Message:         "malformed JSON line on stdout",
				Cause:           err,
			})
			continue
		}
		d.inbound <- msg
	}
	close(d.inbound)
}

func (d *StdioDriver) waitExit() {
	err := d.cmd.Wait()
	exitCode := d.cmd.ProcessState.ExitCode()
	tErr := &jsonrpc.TransportError{
		Category:   jsonrpc.CategoryServerExit,
		Message:    fmt.Sprintf("child process %s exited", d.command),
		ExitCode:   &exitCode,
		StderrTail: d.stderrRing.tail(),
		Cause:      err,
		Fatal:      true,
	}
	d.sendErr(tErr)
	close(d.errs)
}

func (d *StdioDriver) sendErr(e *jsonrpc.TransportError) {
	select {
	case d.errs <- e:
	default:
		logging.Warn("Transport", "stdio: error channel full, dropping %v", e)
	}
}

func (d *StdioDriver) fatal(cat jsonrpc.ErrorCategory, likelyBug bool, err error) error {
	d.sendErr(&jsonrpc.TransportError{Category: cat, LikelyServerBug: likelyBug, Message: err.Error(), Cause: err, Fatal: true})
	return err
}

func (d *StdioDriver) Send(ctx context.Context, msg jsonrpc.Message) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.stdin == nil {
		return fmt.Errorf("stdio driver not connected")
	}

	encoded, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	encoded = append(encoded, '\n')

	type writeResult struct {
		n   int
		err error
	}
	done := make(chan writeResult, 1)
	go func() {
		n, err := d.stdin.Write(encoded)
		done <- writeResult{n, err}
	}()

	select {
	case r := <-done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *StdioDriver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.stdin != nil {
			_ = d.stdin.Close()
		}
		if d.cmd != nil && d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
	})
	return err
}

func (d *StdioDriver) Inbound() <-chan jsonrpc.Message       { return d.inbound }
func (d *StdioDriver) Errors() <-chan *jsonrpc.TransportError { return d.errs }
