package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"unicode/utf8"

	"github.com/creack/pty"
	"golang.org/x/term"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/titpetric/kts/lang/hostconfig"
)

// DefaultHost is the reference Host implementation: it spawns real
// child processes (grounded on psexec/executor.go's runStandard
// pipe-based execution; when Config.UsePTY is set, runWithPTY's
// pty.Start path instead, so subprocess output preserves color/TTY
// behavior), copies/moves real files, and reads real stdin.
type DefaultHost struct {
	Config *hostconfig.Config
	Stdin_ StdinReader
}

// NewDefaultHost builds a DefaultHost with cfg (or hostconfig.Default()
// if nil) and a line-buffered stdin reader over os.Stdin.
func NewDefaultHost(cfg *hostconfig.Config) *DefaultHost {
	if cfg == nil {
		cfg = hostconfig.Default()
	}
	return &DefaultHost{Config: cfg, Stdin_: NewStdinReader(os.Stdin)}
}

func (h *DefaultHost) Stdin() StdinReader { return h.Stdin_ }

// decodeLine decodes a raw line as UTF-8, falling back to a GBK
// transform when argv0 matches a configured GBK command prefix and
// the bytes aren't valid UTF-8 — mirroring builtin.rs's
// is_system_gbk_output_command heuristic.
func decodeLine(cfg *hostconfig.Config, argv0 string, raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if cfg == nil || !cfg.MatchesGBKPrefix(argv0) {
		return string(raw)
	}
	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// pumpLines scans r line by line, invoking fn with each decoded line.
// It is the stream pump spec.md §5 describes as "logically concurrent
// with" its sibling stream; each individual stream's lines are
// delivered in arrival order.
func pumpLines(cfg *hostconfig.Config, argv0 string, r io.Reader, fn LineFunc) {
	if fn == nil {
		_, _ = io.Copy(io.Discard, r)
		return
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(decodeLine(cfg, argv0, scanner.Bytes()))
	}
}

// SpawnCommand runs argv[0] with argv[1:] in cwd, merging env over the
// host's own environment (later entries win), and pumps stdout/stderr
// to onStdout/onStderr one line at a time. The two pumps run as
// goroutines joined before SpawnCommand returns, matching spec.md
// §4.G's "a step/parallel call does not return until all its op-level
// workers ... have completed".
func (h *DefaultHost) SpawnCommand(ctx context.Context, cwd string, env []string, argv []string, onStdout, onStderr LineFunc) (int, error) {
	if len(argv) == 0 {
		return -1, fmt.Errorf("host: empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	cmd.Env = mergeEnv(os.Environ(), env)

	if h.Config != nil && h.Config.UsePTY {
		return h.spawnWithPTY(cmd, argv[0], onStdout)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("host: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("host: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("host: start %q: %w", argv[0], err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); pumpLines(h.Config, argv[0], stdout, onStdout) }()
	go func() { defer wg.Done(); pumpLines(h.Config, argv[0], stderr, onStderr) }()
	wg.Wait()

	err = cmd.Wait()
	return exitCode(cmd, err), nil
}

// spawnWithPTY runs cmd behind a pseudo-terminal, sized to the current
// process's stdout if it is itself a TTY. PTYs multiplex stdout/stderr
// onto one stream, so decoded lines are all delivered through onStdout
// — grounded on psexec/executor.go's runWithPTY.
func (h *DefaultHost) spawnWithPTY(cmd *exec.Cmd, argv0 string, onStdout LineFunc) (int, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return -1, fmt.Errorf("host: start pty %q: %w", argv0, err)
	}
	defer func() { _ = ptmx.Close() }()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, hgt, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(hgt), Cols: uint16(w)})
		}
	}

	pumpLines(h.Config, argv0, ptmx, onStdout)
	err = cmd.Wait()
	return exitCode(cmd, err), nil
}

func mergeEnv(base, overlay []string) []string {
	set := map[string]int{}
	out := append([]string{}, base...)
	for i, kv := range out {
		if k, _, ok := splitKV(kv); ok {
			set[k] = i
		}
	}
	for _, kv := range overlay {
		k, _, ok := splitKV(kv)
		if !ok {
			continue
		}
		if i, exists := set[k]; exists {
			out[i] = kv
		} else {
			set[k] = len(out)
			out = append(out, kv)
		}
	}
	return out
}

func splitKV(kv string) (string, string, bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}

// exitCode extracts the exit status, grounded on psexec/executor.go's
// extractExitCode.
func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}
	if err != nil {
		return 1
	}
	return 0
}
