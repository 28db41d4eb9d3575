package gitctx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testRepo is a scratch repository with a helper to run git in it.
type testRepo struct {
	t   *testing.T
	dir string
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := &testRepo{t: t, dir: t.TempDir()}
	r.git("init")
	r.git("checkout", "-b", "main")
	return r
}

func (r *testRepo) git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@test.com",
		"GIT_CONFIG_GLOBAL="+os.DevNull,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func (r *testRepo) commit(file string, msg ...string) string {
	r.t.Helper()
	if err := os.WriteFile(filepath.Join(r.dir, file), []byte(file+"\n"), 0o644); err != nil {
		r.t.Fatal(err)
	}
	r.git("add", file)
	args := []string{"commit"}
	for _, m := range msg {
		args = append(args, "-m", m)
	}
	r.git(args...)
	return r.git("rev-parse", "HEAD")
}

func TestCommits(t *testing.T) {
	tr := newTestRepo(t)
	initSHA := tr.commit("init.txt", "init")
	tr.commit("a.txt", "feat: add export (#12)", "## Release notes\nExport to CSV")
	tr.commit("b.txt", "fix typo")

	repo := Open(tr.dir)
	commits, err := repo.Commits(context.Background(), initSHA+"..HEAD")
	if err != nil {
		t.Fatalf("Commits error: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}
	if commits[0].Subject != "feat: add export (#12)" {
		t.Errorf("commits[0].Subject = %q", commits[0].Subject)
	}
	if commits[0].Body != "## Release notes\nExport to CSV" {
		t.Errorf("commits[0].Body = %q", commits[0].Body)
	}
	if commits[1].Subject != "fix typo" || commits[1].Body != "" {
		t.Errorf("commits[1] = %+v", commits[1])
	}
	if len(commits[0].SHA) != 40 {
		t.Errorf("SHA length = %d, want 40", len(commits[0].SHA))
	}

	all, err := repo.Commits(context.Background(), "HEAD")
	if err != nil {
		t.Fatalf("Commits(HEAD) error: %v", err)
	}
	if len(all) != 3 || all[0].SHA != initSHA {
		t.Errorf("whole history = %d commits, first %q", len(all), all[0].SHA)
	}
}

func TestCommits_EmptyRange(t *testing.T) {
	tr := newTestRepo(t)
	tr.commit("init.txt", "init")
	commits, err := Open(tr.dir).Commits(context.Background(), "HEAD..HEAD")
	if err != nil {
		t.Fatalf("Commits error: %v", err)
	}
	if len(commits) != 0 {
		t.Errorf("got %d commits for empty range, want 0", len(commits))
	}
}

func TestRefsAndTags(t *testing.T) {
	tr := newTestRepo(t)
	first := tr.commit("one.txt", "one")
	tr.git("tag", "v0.1.0")
	tr.commit("two.txt", "two")
	tr.git("tag", "v0.2.0")
	tr.git("tag", "nightly")
	tr.git("checkout", "-b", "side", first)
	tr.commit("side.txt", "side")
	tr.git("tag", "v9.0.0")
	tr.git("checkout", "main")

	ctx := context.Background()
	repo := Open(tr.dir)

	sha, err := repo.ResolveRevision(ctx, "v0.1.0")
	if err != nil || sha != first {
		t.Errorf("ResolveRevision(v0.1.0) = %q, %v; want %q", sha, err, first)
	}
	if err := repo.VerifyRef(ctx, "v0.2.0"); err != nil {
		t.Errorf("VerifyRef(v0.2.0) error: %v", err)
	}
	if err := repo.VerifyRef(ctx, "v7.7.7"); err == nil {
		t.Error("VerifyRef of missing tag should fail")
	}
	if _, err := repo.ResolveRevision(ctx, "no-such-ref"); err == nil {
		t.Error("ResolveRevision of missing ref should fail")
	}

	tags, err := repo.MergedTags(ctx, "main")
	if err != nil {
		t.Fatalf("MergedTags error: %v", err)
	}
	got := strings.Join(tags, ",")
	if got != "nightly,v0.1.0,v0.2.0" {
		t.Errorf("MergedTags(main) = %s", got)
	}
}

func TestRemoteURL(t *testing.T) {
	tr := newTestRepo(t)
	tr.git("remote", "add", "origin", "git@github.com:acme/widgets.git")
	url, err := Open(tr.dir).RemoteURL(context.Background(), "origin")
	if err != nil {
		t.Fatalf("RemoteURL error: %v", err)
	}
	if url != "git@github.com:acme/widgets.git" {
		t.Errorf("RemoteURL = %q", url)
	}
	if _, err := Open(tr.dir).RemoteURL(context.Background(), "upstream"); err == nil {
		t.Error("missing remote should fail")
	}
}

func TestOutput_ErrorIncludesStderr(t *testing.T) {
	tr := newTestRepo(t)
	_, err := Repo{Dir: tr.dir, Timeout: 5 * time.Second}.Commits(context.Background(), "nope..HEAD")
	if err == nil {
		t.Fatal("expected error for bad range")
	}
	if !strings.Contains(err.Error(), "git command failed (git log") {
		t.Errorf("err = %v", err)
	}
}

func TestParseLog(t *testing.T) {
	out := "aaa\x1ffeat: one\x1fbody line\n\x1e\nbbb\x1ffix: two\x1f\x1e\nmalformed\x1e"
	commits := parseLog(out)
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}
	if commits[0] != (Commit{SHA: "aaa", Subject: "feat: one", Body: "body line"}) {
		t.Errorf("commits[0] = %+v", commits[0])
	}
	if commits[1] != (Commit{SHA: "bbb", Subject: "fix: two"}) {
		t.Errorf("commits[1] = %+v", commits[1])
	}
}
