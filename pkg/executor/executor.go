// Package executor runs per-device command plans against the fleet with a
// bounded worker pool, parallel across devices and strictly serialized per
// device.
package executor

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dnaas-network/bridge/pkg/sshsession"
)

// Mode selects which of the four device interaction modes a Plan is run in.
type Mode string

const (
	ModeQuery       Mode = "query"
	ModeDryRun      Mode = "dry_run"
	ModeCommitCheck Mode = "commit_check"
	ModeCommit      Mode = "commit"
)

// CommitCheckOutcome is the three-way result of a COMMIT-CHECK device run.
type CommitCheckOutcome string

const (
	OutcomeWouldChange CommitCheckOutcome = "would_change"
	OutcomeNoChange    CommitCheckOutcome = "no_change"
	OutcomeNone        CommitCheckOutcome = "" // not applicable outside ModeCommitCheck
)

// Plan is a per-device ordered list of CLI commands.
type Plan map[string][]string

// DeviceResult is the outcome of running one device's command list in one
// mode.
type DeviceResult struct {
	Device      string
	Mode        Mode
	Output      []string
	CommitCheck CommitCheckOutcome
	Committed   bool
	Err         error
	Cancelled   bool
}

// Session is the narrow contract the executor depends on, satisfied by
// *sshsession.Session; defined here so tests can supply a fake without
// opening real SSH connections.
type Session interface {
	Send(ctx context.Context, cmd string, timeout time.Duration) (string, error)
	Close() error
}

// Opener dials a Session for the named device.
type Opener func(ctx context.Context, device string) (Session, error)

// Executor runs plans against a fleet of devices.
type Executor struct {
	opener         Opener
	parallelism    int
	commandTimeout time.Duration

	mu          sync.Mutex
	deviceLocks map[string]*sync.Mutex
}

// New constructs an Executor. parallelism bounds the number of devices
// worked on concurrently; commandTimeout is the default per-command read
// timeout applied to every Send call.
func New(opener Opener, parallelism int, commandTimeout time.Duration) *Executor {
	if parallelism <= 0 {
		parallelism = 10
	}
	return &Executor{
		opener:         opener,
		parallelism:    parallelism,
		commandTimeout: commandTimeout,
		deviceLocks:    make(map[string]*sync.Mutex),
	}
}

// lockFor returns the (lazily created) mutex serializing operations against
// one device.
func (e *Executor) lockFor(device string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.deviceLocks[device]
	if !ok {
		l = &sync.Mutex{}
		e.deviceLocks[device] = l
	}
	return l
}

// ExecuteParallel fans the plan out across devices, bounded to e.parallelism
// concurrent workers, serialized per device by a keyed mutex. A failure on
// one device never affects another: the internal errgroup.Group is used
// only for goroutine lifecycle management — its worker functions always
// return nil, so one device's error can never cancel another's context.
func (e *Executor) ExecuteParallel(ctx context.Context, plan Plan, mode Mode) map[string]DeviceResult {
	results := make(map[string]DeviceResult, len(plan))
	var resultsMu sync.Mutex

	sem := semaphore.NewWeighted(int64(e.parallelism))
	var g errgroup.Group

	for device, cmds := range plan {
		device, cmds := device, cmds
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				resultsMu.Lock()
				results[device] = DeviceResult{Device: device, Mode: mode, Cancelled: true}
				resultsMu.Unlock()
				return nil
			}
			defer sem.Release(1)

			lock := e.lockFor(device)
			lock.Lock()
			defer lock.Unlock()

			r := e.runDevice(ctx, device, cmds, mode)
			resultsMu.Lock()
			results[device] = r
			resultsMu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}

// Execute runs the plan against all devices and waits for completion,
// returning the same per-device result map as ExecuteParallel. It exists as
// the single-call convenience entry point callers reach for when they do
// not need to interleave other work while the fan-out runs.
func (e *Executor) Execute(ctx context.Context, plan Plan, mode Mode) map[string]DeviceResult {
	return e.ExecuteParallel(ctx, plan, mode)
}

func (e *Executor) runDevice(ctx context.Context, device string, cmds []string, mode Mode) DeviceResult {
	result := DeviceResult{Device: device, Mode: mode}

	if ctx.Err() != nil {
		result.Cancelled = true
		return result
	}

	if mode == ModeDryRun {
		result.Output = append([]string(nil), cmds...)
		return result
	}

	sess, err := e.opener(ctx, device)
	if err != nil {
		result.Err = err
		return result
	}
	defer sess.Close()

	switch mode {
	case ModeQuery:
		e.runQuery(ctx, sess, device, cmds, &result)
	case ModeCommitCheck:
		e.runCommitCheck(ctx, sess, device, cmds, &result)
	case ModeCommit:
		e.runCommit(ctx, sess, device, cmds, &result)
	}

	return result
}

func (e *Executor) runQuery(ctx context.Context, sess Session, device string, cmds []string, result *DeviceResult) {
	for _, cmd := range cmds {
		if ctx.Err() != nil {
			result.Cancelled = true
			return
		}
		out, err := sess.Send(ctx, cmd, e.commandTimeout)
		if err != nil {
			result.Err = err
			return
		}
		if devErr := sshsession.DetectError(device, "query", out); devErr != nil {
			result.Err = devErr
			return
		}
		result.Output = append(result.Output, out)
	}
}

func (e *Executor) runCommitCheck(ctx context.Context, sess Session, device string, cmds []string, result *DeviceResult) {
	if _, err := sess.Send(ctx, "configure", e.commandTimeout); err != nil {
		result.Err = err
		return
	}

	for _, cmd := range cmds {
		if ctx.Err() != nil {
			result.Cancelled = true
			e.bestEffortAbort(ctx, sess)
			return
		}
		out, err := sess.Send(ctx, cmd, e.commandTimeout)
		if err != nil {
			result.Err = err
			e.bestEffortAbort(ctx, sess)
			return
		}
		if devErr := sshsession.DetectError(device, "commit-check", out); devErr != nil {
			result.Err = devErr
			e.bestEffortAbort(ctx, sess)
			return
		}
	}

	checkOut, err := sess.Send(ctx, "commit check", e.commandTimeout)
	if err != nil {
		result.Err = err
		e.bestEffortAbort(ctx, sess)
		return
	}
	if devErr := sshsession.DetectError(device, "commit-check", checkOut); devErr != nil {
		result.Err = devErr
		e.bestEffortAbort(ctx, sess)
		return
	}

	if strings.Contains(strings.ToLower(checkOut), "no configuration changes") {
		result.CommitCheck = OutcomeNoChange
	} else {
		result.CommitCheck = OutcomeWouldChange
	}

	// Leave config mode without committing, regardless of outcome.
	sess.Send(ctx, "exit", e.commandTimeout)
}

func (e *Executor) runCommit(ctx context.Context, sess Session, device string, cmds []string, result *DeviceResult) {
	if _, err := sess.Send(ctx, "configure", e.commandTimeout); err != nil {
		result.Err = err
		return
	}

	for _, cmd := range cmds {
		if ctx.Err() != nil {
			result.Cancelled = true
			e.bestEffortAbort(ctx, sess)
			return
		}
		out, err := sess.Send(ctx, cmd, e.commandTimeout)
		if err != nil {
			result.Err = err
			e.bestEffortAbort(ctx, sess)
			return
		}
		if devErr := sshsession.DetectError(device, "commit", out); devErr != nil {
			result.Err = devErr
			e.bestEffortAbort(ctx, sess)
			return
		}
	}

	commitOut, err := sess.Send(ctx, "commit and-exit", e.commandTimeout)
	if err != nil {
		result.Err = err
		e.bestEffortAbort(ctx, sess)
		return
	}
	if devErr := sshsession.DetectError(device, "commit", commitOut); devErr != nil {
		result.Err = devErr
		e.bestEffortAbort(ctx, sess)
		return
	}

	result.Committed = true
}

// bestEffortAbort issues rollback+exit on a best-effort basis so a failed
// device is never left sitting in configuration mode. Errors are
// intentionally discarded: there is nothing more useful to do with them,
// and the session is closed immediately after by the caller's defer.
func (e *Executor) bestEffortAbort(ctx context.Context, sess Session) {
	sess.Send(ctx, "rollback", e.commandTimeout)
	sess.Send(ctx, "exit", e.commandTimeout)
}
