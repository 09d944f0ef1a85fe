// Package sshsession wraps a single interactive DNOS CLI shell per device,
// generalizing the teacher's Redis-tunnel dial into a prompt-detecting
// command/response shell. A Session is not shared across goroutines; the
// executor (pkg/executor) guarantees single-owner access per device per
// operation.
package sshsession

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/dnaas-network/bridge/pkg/bderrors"
	"github.com/dnaas-network/bridge/pkg/model"
)

// promptRe matches a DNOS prompt line, e.g. "leaf-b14#" or "leaf-b14(cfg-bd)#".
var promptRe = regexp.MustCompile(`(?m)^\S+[>#](?:\([^)]*\))?\s*$`)

// cfgPromptRe matches a configuration-mode prompt fragment ("cfg-*").
var cfgPromptRe = regexp.MustCompile(`\(cfg[^)]*\)#\s*$`)

// errMarkerRe matches device-side error markers in captured output.
var errMarkerRe = regexp.MustCompile(`(?m)^(ERROR:|% |.*access-denied|.*invalid-value)`)

// Options configures how a Session is opened.
type Options struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// Session is one interactive shell on one device.
type Session struct {
	device string
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
	buf    bytes.Buffer
}

// Open dials SSH to the device, requests a PTY, and starts an interactive
// shell with pagination disabled. Host key verification is intentionally
// skipped (lab/test posture inherited from the teacher's tunnel dialer);
// TODO: plumb real host-key verification once a fleet-wide known_hosts
// source exists.
func Open(ctx context.Context, info model.DeviceInfo, opts Options) (*Session, error) {
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 15 * time.Second
	}

	config := &ssh.ClientConfig{
		User:            info.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(info.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}

	addr := fmt.Sprintf("%s:%d", info.Host, info.Port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, bderrors.NewDeviceError(info.Name, "connect", bderrors.KindConnectivity,
			fmt.Sprintf("ssh dial %s@%s failed", info.Username, addr), err)
	}

	sshSess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, bderrors.NewDeviceError(info.Name, "connect", bderrors.KindConnectivity, "ssh session open failed", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sshSess.RequestPty("vt100", 0, 512, modes); err != nil {
		sshSess.Close()
		client.Close()
		return nil, bderrors.NewDeviceError(info.Name, "connect", bderrors.KindConnectivity, "pty request failed", err)
	}

	stdin, err := sshSess.StdinPipe()
	if err != nil {
		sshSess.Close()
		client.Close()
		return nil, bderrors.NewDeviceError(info.Name, "connect", bderrors.KindConnectivity, "stdin pipe failed", err)
	}
	stdout, err := sshSess.StdoutPipe()
	if err != nil {
		sshSess.Close()
		client.Close()
		return nil, bderrors.NewDeviceError(info.Name, "connect", bderrors.KindConnectivity, "stdout pipe failed", err)
	}

	if err := sshSess.Shell(); err != nil {
		sshSess.Close()
		client.Close()
		return nil, bderrors.NewDeviceError(info.Name, "connect", bderrors.KindConnectivity, "shell start failed", err)
	}

	s := &Session{
		device: info.Name,
		client: client,
		sess:   sshSess,
		stdin:  stdin,
		stdout: stdout,
	}

	// Drain the initial banner/prompt and suppress pagination.
	cmdTimeout := opts.CommandTimeout
	if cmdTimeout <= 0 {
		cmdTimeout = 30 * time.Second
	}
	if _, err := s.readUntilPrompt(ctx, cmdTimeout); err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.Send(ctx, "terminal length 0", cmdTimeout); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Send writes cmd followed by a newline, drains output until the device
// prompt reappears or timeout elapses, and returns the captured block
// excluding the echoed command and the trailing prompt.
func (s *Session) Send(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	if _, err := io.WriteString(s.stdin, cmd+"\n"); err != nil {
		return "", bderrors.NewDeviceError(s.device, "send", bderrors.KindConnectivity,
			fmt.Sprintf("write command %q failed", cmd), err)
	}

	raw, err := s.readUntilPrompt(ctx, timeout)
	if err != nil {
		return "", err
	}

	return stripEcho(raw, cmd), nil
}

// readUntilPrompt reads from stdout into the session's buffer until a
// prompt line appears, ctx is cancelled, or timeout elapses. It returns
// everything read (including the trailing prompt line, stripped by the
// caller via stripEcho).
func (s *Session) readUntilPrompt(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 4096)
	type readResult struct {
		n   int
		err error
	}
	resultCh := make(chan readResult, 1)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", bderrors.NewDeviceError(s.device, "read", bderrors.KindConnectivity, "shell read timed out", nil)
		}
		select {
		case <-ctx.Done():
			return "", bderrors.NewDeviceError(s.device, "read", bderrors.KindConcurrency, "cancelled while waiting for prompt", ctx.Err())
		default:
		}

		go func() {
			n, err := s.stdout.Read(chunk)
			resultCh <- readResult{n, err}
		}()

		select {
		case <-ctx.Done():
			return "", bderrors.NewDeviceError(s.device, "read", bderrors.KindConcurrency, "cancelled while waiting for prompt", ctx.Err())
		case <-time.After(remaining):
			return "", bderrors.NewDeviceError(s.device, "read", bderrors.KindConnectivity, "shell read timed out", nil)
		case res := <-resultCh:
			if res.n > 0 {
				s.buf.Write(chunk[:res.n])
				if promptRe.MatchString(s.buf.String()) {
					out := s.buf.String()
					s.buf.Reset()
					return out, nil
				}
			}
			if res.err != nil {
				return "", bderrors.NewDeviceError(s.device, "read", bderrors.KindConnectivity, "shell read failed", res.err)
			}
		}
	}
}

// stripEcho removes the echoed command line and the trailing prompt line
// from a captured block.
func stripEcho(raw, cmd string) string {
	lines := strings.Split(raw, "\n")
	var out []string
	for _, l := range lines {
		trimmed := strings.TrimRight(l, "\r")
		if strings.TrimSpace(trimmed) == strings.TrimSpace(cmd) {
			continue
		}
		if promptRe.MatchString(trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

// InConfigMode reports whether the most recently captured prompt indicates
// the shell is sitting in a configuration submode.
func (s *Session) InConfigMode(output string) bool {
	return cfgPromptRe.MatchString(output)
}

// DetectError inspects output for device-side error markers. Returns nil
// when no error marker is present.
func DetectError(device, phase, output string) *bderrors.DeviceError {
	if m := errMarkerRe.FindString(output); m != "" {
		return bderrors.NewDeviceError(device, phase, bderrors.KindProtocol, strings.TrimSpace(m), nil)
	}
	return nil
}

// Close releases the shell and underlying SSH client. Idempotent; never
// panics.
func (s *Session) Close() error {
	if s.sess != nil {
		s.sess.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
