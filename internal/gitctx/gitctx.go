package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every git subprocess.
const DefaultTimeout = 60 * time.Second

const (
	unitSep   = "\x1f"
	recordSep = "\x1e"
)

// Commit is one entry of a history listing.
type Commit struct {
	SHA     string
	Subject string
	Body    string
}

// Repo runs git against a working tree. An empty Dir means the current
// directory.
type Repo struct {
	Dir     string
	Timeout time.Duration
}

// Open returns a Repo for dir with the default timeout.
func Open(dir string) Repo {
	return Repo{Dir: dir, Timeout: DefaultTimeout}
}

// ResolveRevision returns the full SHA that ref points at.
func (r Repo) ResolveRevision(ctx context.Context, ref string) (string, error) {
	out, err := r.output(ctx, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// VerifyRef reports an error unless ref names an existing commit.
func (r Repo) VerifyRef(ctx context.Context, ref string) error {
	_, err := r.output(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return fmt.Errorf("unknown revision %q: %w", ref, err)
	}
	return nil
}

// Commits lists the commits reachable from rangeExpr, oldest first.
func (r Repo) Commits(ctx context.Context, rangeExpr string) ([]Commit, error) {
	out, err := r.output(ctx, "log", "--reverse", "--format=%H%x1f%s%x1f%b%x1e", rangeExpr)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, raw := range strings.Split(out, recordSep) {
		entry := strings.Trim(raw, "\n")
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, unitSep)
		if len(parts) < 3 {
			continue
		}
		commits = append(commits, Commit{
			SHA:     strings.TrimSpace(parts[0]),
			Subject: strings.TrimSpace(parts[1]),
			Body:    strings.TrimSpace(parts[2]),
		})
	}
	return commits
}

// MergedTags lists the tags reachable from ref.
func (r Repo) MergedTags(ctx context.Context, ref string) ([]string, error) {
	out, err := r.output(ctx, "tag", "--merged", ref)
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if tag := strings.TrimSpace(line); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// RemoteURL returns the fetch URL of the named remote.
func (r Repo) RemoteURL(ctx context.Context, name string) (string, error) {
	out, err := r.output(ctx, "remote", "get-url", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r Repo) output(ctx context.Context, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("git %s: timed out after %s", strings.Join(args, " "), timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("git command failed (git %s): %s", strings.Join(args, " "), detail)
	}
	return stdout.String(), nil
}
