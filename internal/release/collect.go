package release

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
	"github.com/dshills/relnote/internal/github"
	"github.com/dshills/relnote/internal/gitctx"
	"github.com/dshills/relnote/internal/logging"
	"github.com/dshills/relnote/internal/semver"
)

// Base selection values for CollectOptions.
const (
	BaseAuto = "auto"

	AutoBaseGitTags         = "git-tags"
	AutoBaseHostingReleases = "hosting-releases"
	AutoBaseGitHubReleases  = "github-releases"
)

// History is the version-control query surface the collector needs.
// gitctx.Repo satisfies it.
type History interface {
	ResolveRevision(ctx context.Context, ref string) (string, error)
	VerifyRef(ctx context.Context, ref string) error
	Commits(ctx context.Context, rangeExpr string) ([]gitctx.Commit, error)
	MergedTags(ctx context.Context, ref string) ([]string, error)
	RemoteURL(ctx context.Context, name string) (string, error)
}

// Hosting is the code-hosting API surface the collector needs.
// *github.Client satisfies it.
type Hosting interface {
	PullRequest(ctx context.Context, repo string, n int) (github.PullRequest, error)
	Releases(ctx context.Context, repo string) ([]github.Release, error)
	WebURL() string
}

// CollectOptions selects the compare range to harvest.
type CollectOptions struct {
	// Repository is the owner/name slug. Empty means infer from origin.
	Repository string
	// BaseTag is "auto", an explicit ref, or empty for the whole history.
	BaseTag string
	// AutoBaseSource picks how "auto" finds the base.
	AutoBaseSource string
	// Head defaults to HEAD.
	Head string
	// HeadTag, when set, replaces Head and is excluded from base candidates.
	HeadTag string
}

// Collector harvests Facts from history and hosting metadata.
type Collector struct {
	History History
	// Hosting may be nil, in which case pull request metadata is synthesized
	// from commits.
	Hosting              Hosting
	Log                  *logging.Logger
	MaxDescriptionLength int
}

// Collect resolves the compare range and turns every commit in it into
// exactly one Change.
func (c *Collector) Collect(ctx context.Context, opts CollectOptions) (Facts, error) {
	headRef := opts.HeadTag
	if headRef == "" {
		headRef = opts.Head
	}
	if headRef == "" {
		headRef = "HEAD"
	}

	headSHA, err := c.History.ResolveRevision(ctx, headRef)
	if err != nil {
		return Facts{}, failure.Wrap(failure.Input, err, "resolving head "+headRef)
	}

	repo := strings.TrimSpace(opts.Repository)
	if repo == "" {
		repo = c.inferRepository(ctx)
	}

	baseTag, err := c.resolveBase(ctx, opts, repo, headRef)
	if err != nil {
		return Facts{}, err
	}

	rangeExpr := headRef
	if baseTag != "" {
		rangeExpr = baseTag + ".." + headRef
	}

	commits, err := c.History.Commits(ctx, rangeExpr)
	if err != nil {
		return Facts{}, failure.Wrap(failure.Input, err, "listing commits in "+rangeExpr)
	}

	changes := c.buildChanges(ctx, repo, commits)
	facts := Facts{
		SchemaVersion: artifact.SchemaVersion,
		GeneratedAt:   artifact.Timestamp(artifact.Now()),
		Repository:    repo,
		BaseTag:       baseTag,
		Head:          headRef,
		HeadSHA:       headSHA,
		CompareRange:  rangeExpr,
		Changes:       changes,
		Stats:         computeStats(changes),
	}
	if err := facts.Check(); err != nil {
		return Facts{}, err
	}
	return facts, nil
}

func (c *Collector) inferRepository(ctx context.Context) string {
	remote, err := c.History.RemoteURL(ctx, "origin")
	if err != nil {
		return ""
	}
	slug, ok := github.ParseRemoteURL(remote)
	if !ok {
		return ""
	}
	return slug
}

func (c *Collector) resolveBase(ctx context.Context, opts CollectOptions, repo, headRef string) (string, error) {
	base := strings.TrimSpace(opts.BaseTag)
	switch base {
	case "":
		return "", nil
	case BaseAuto:
	default:
		if err := c.History.VerifyRef(ctx, base); err != nil {
			return "", failure.Wrap(failure.Input, err, "base "+base+" does not resolve")
		}
		return base, nil
	}

	switch opts.AutoBaseSource {
	case "", AutoBaseGitTags:
		return c.latestMergedTag(ctx, headRef, opts.HeadTag)
	case AutoBaseHostingReleases, AutoBaseGitHubReleases:
		if repo == "" {
			return "", failure.Inputf("auto base source %q requires --repo or an origin GitHub remote", opts.AutoBaseSource)
		}
		return c.latestPublishedRelease(ctx, repo, headRef, opts.HeadTag)
	default:
		return "", failure.Inputf("unknown auto base source %q", opts.AutoBaseSource)
	}
}

func (c *Collector) mergedSemverTags(ctx context.Context, headRef string) ([]string, error) {
	tags, err := c.History.MergedTags(ctx, headRef)
	if err != nil {
		return nil, failure.Wrap(failure.Input, err, "listing tags merged into "+headRef)
	}
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if _, ok := semver.Parse(t); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *Collector) latestMergedTag(ctx context.Context, headRef, excludeTag string) (string, error) {
	tags, err := c.mergedSemverTags(ctx, headRef)
	if err != nil {
		return "", err
	}
	if _, ok := semver.Parse(excludeTag); ok {
		kept := tags[:0]
		for _, t := range tags {
			if t != excludeTag {
				kept = append(kept, t)
			}
		}
		tags = kept
	}
	latest, _ := semver.FindLatest(tags)
	return latest, nil
}

func (c *Collector) latestPublishedRelease(ctx context.Context, repo, headRef, excludeTag string) (string, error) {
	merged, err := c.mergedSemverTags(ctx, headRef)
	if err != nil {
		return "", err
	}
	if c.Hosting == nil {
		return "", failure.Inputf("cannot fetch GitHub releases for %s: no hosting client", repo)
	}
	releases, err := c.Hosting.Releases(ctx, repo)
	if err != nil {
		return "", failure.Wrap(failure.Input, err, "cannot fetch GitHub releases for "+repo)
	}
	allowed := make(map[string]bool, len(merged))
	for _, t := range merged {
		allowed[t] = true
	}
	latest, _ := LatestPublished(releases, headRef, excludeTag, allowed)
	return latest, nil
}

// LatestPublished returns the greatest published SemVer release tag that is
// not a draft or prerelease, not excludeTag, strictly below headTag when
// headTag parses, and present in allowed when allowed is non-nil.
func LatestPublished(releases []github.Release, headTag, excludeTag string, allowed map[string]bool) (string, bool) {
	head, headOK := semver.Parse(headTag)
	var candidates []string
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		tag := strings.TrimSpace(r.TagName)
		v, ok := semver.Parse(tag)
		if !ok || tag == excludeTag || tag == headTag {
			continue
		}
		if headOK && !v.Less(head) {
			continue
		}
		if allowed != nil && !allowed[tag] {
			continue
		}
		candidates = append(candidates, tag)
	}
	return semver.FindLatest(candidates)
}

func (c *Collector) buildChanges(ctx context.Context, repo string, commits []gitctx.Commit) []Change {
	byPR := make(map[int][]gitctx.Commit)
	covered := make(map[string]bool)
	var direct []string
	for _, cm := range commits {
		if n, ok := OwningPR(cm.Subject, cm.Body); ok {
			byPR[n] = append(byPR[n], cm)
			covered[cm.SHA] = true
		} else {
			direct = append(direct, cm.SHA)
		}
	}
	numbers := make([]int, 0, len(byPR))
	for n := range byPR {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	web := github.WebURLFor("")
	if c.Hosting != nil {
		web = c.Hosting.WebURL()
	}

	changes := make([]Change, 0, len(numbers)+len(commits))
	for _, n := range numbers {
		changes = append(changes, c.pullRequestChange(ctx, repo, web, n, byPR[n]))
	}
	ids := commitIDs(direct)
	for _, cm := range commits {
		if covered[cm.SHA] {
			continue
		}
		changes = append(changes, c.commitChange(repo, web, ids[cm.SHA], cm))
	}
	return changes
}

// commitIDs abbreviates each SHA to seven characters, lengthening the prefix
// of commits that would otherwise share an id.
func commitIDs(shas []string) map[string]string {
	ids := make(map[string]string, len(shas))
	for _, sha := range shas {
		n := min(7, len(sha))
		for n < len(sha) && sharesPrefix(sha, shas, n) {
			n++
		}
		ids[sha] = "commit:" + sha[:n]
	}
	return ids
}

func sharesPrefix(sha string, shas []string, n int) bool {
	for _, other := range shas {
		if other != sha && len(other) >= n && other[:n] == sha[:n] {
			return true
		}
	}
	return false
}

func (c *Collector) pullRequestChange(ctx context.Context, repo, web string, n int, linked []gitctx.Commit) Change {
	ch := Change{
		ID:         fmt.Sprintf("pr#%d", n),
		Source:     SourcePullRequest,
		PRNumber:   n,
		Labels:     []string{},
		CommitSHAs: make([]string, 0, len(linked)),
	}
	for _, cm := range linked {
		ch.CommitSHAs = append(ch.CommitSHAs, cm.SHA)
	}

	var body string
	pr, err := c.fetchPullRequest(ctx, repo, n)
	if err == nil {
		ch.Title = strings.TrimSpace(pr.Title)
		if ch.Title == "" {
			ch.Title = fmt.Sprintf("PR #%d", n)
		}
		body = pr.Body
		ch.Labels = pr.LabelNames()
		ch.URL = pr.HTMLURL
		ch.Author = pr.Author()
		ch.MergedAt = pr.MergedAt
	} else {
		c.Log.Warnf("pull request #%d metadata unavailable, using commits: %v", n, err)
		ch.Title = linked[len(linked)-1].Subject
		var bodies []string
		for _, cm := range linked {
			if cm.Body != "" {
				bodies = append(bodies, cm.Body)
			}
		}
		body = strings.TrimSpace(strings.Join(bodies, "\n\n"))
		if repo != "" {
			ch.URL = fmt.Sprintf("%s/%s/pull/%d", web, repo, n)
		}
	}

	ch.Description = ReleaseNotesSection(body, c.MaxDescriptionLength)
	if ch.Description == "" {
		subjects := make([]string, 0, len(linked))
		for _, cm := range linked {
			subjects = append(subjects, cm.Subject)
		}
		ch.Description = strings.Join(subjects, "; ")
	}
	ch.Type = Classify(ch.Title, body, ch.Labels)
	return ch
}

func (c *Collector) fetchPullRequest(ctx context.Context, repo string, n int) (github.PullRequest, error) {
	if repo == "" {
		return github.PullRequest{}, fmt.Errorf("repository unknown")
	}
	if c.Hosting == nil {
		return github.PullRequest{}, fmt.Errorf("no hosting client")
	}
	return c.Hosting.PullRequest(ctx, repo, n)
}

func (c *Collector) commitChange(repo, web, id string, cm gitctx.Commit) Change {
	ch := Change{
		ID:         id,
		Source:     SourceCommit,
		Title:      cm.Subject,
		Labels:     []string{},
		CommitSHAs: []string{cm.SHA},
	}
	ch.Description = ReleaseNotesSection(cm.Body, c.MaxDescriptionLength)
	if ch.Description == "" {
		ch.Description = cm.Subject
	}
	if repo != "" {
		ch.URL = fmt.Sprintf("%s/%s/commit/%s", web, repo, cm.SHA)
	}
	ch.Type = Classify(cm.Subject, cm.Body, nil)
	return ch
}
