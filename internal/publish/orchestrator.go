// Package publish drives a hierarchy publish run: it renders the navigation
// tree, diffs each page against its remote counterpart by fingerprint, and
// creates or updates pages parent-before-child.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"confpress/internal/confluence"
	"confpress/internal/docs"
	"confpress/internal/fingerprint"
	"confpress/internal/renderer"
	"confpress/pkg/logger"
)

// Destination receives the mutations of a run. The real server and the
// dry-run sink implement it, so the orchestrator walks the same code path
// either way.
type Destination interface {
	CreatePage(ctx context.Context, space, title, body, parentID, message string) (string, error)
	UpdatePage(ctx context.Context, pageID, title, body string, version int, message string) error
	UploadAttachment(ctx context.Context, pageID, filename string, data []byte, comment string) error
}

type remoteDestination struct {
	client confluence.API
}

func (r *remoteDestination) CreatePage(ctx context.Context, space, title, body, parentID, message string) (string, error) {
	page, err := r.client.CreatePage(ctx, space, title, body, parentID, message)
	if err != nil {
		return "", err
	}
	return page.ID, nil
}

func (r *remoteDestination) UpdatePage(ctx context.Context, pageID, title, body string, version int, message string) error {
	_, err := r.client.UpdatePage(ctx, pageID, title, body, version, message)
	return err
}

func (r *remoteDestination) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, comment string) error {
	_, err := r.client.UploadAttachment(ctx, pageID, filename, data, comment)
	return err
}

// Options configures a publish run.
type Options struct {
	Space      string
	RootTitle  string
	CreateRoot bool
	DryRun     bool

	// Concurrency bounds how many sibling subtrees publish in parallel.
	// 1 disables concurrency; dry runs always publish sequentially so the
	// recorded plan keeps navigation order.
	Concurrency   int
	RetryAttempts uint
	CallTimeout   time.Duration
}

// Orchestrator runs a publish against one space, under one root page.
type Orchestrator struct {
	client   confluence.API
	resolver *Resolver
	log      *logger.Logger
	opts     Options

	// sem bounds in-flight page work across the whole run, not per
	// recursion level. Slots are held only for a node's own remote calls
	// and released before descending, so nesting cannot deadlock.
	sem chan struct{}
}

func New(client confluence.API, log *logger.Logger, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	return &Orchestrator{
		client:   client,
		resolver: NewResolver(client, opts.Space),
		log:      log,
		opts:     opts,
		sem:      make(chan struct{}, opts.Concurrency),
	}
}

// preparedPage is one node's render output, computed before any mutation so
// a render failure never leaves the remote hierarchy half-written.
type preparedPage struct {
	body        string
	fingerprint string
	images      []imageFile
	warnings    []string
	renderErr   error
}

const childrenMacro = `<ac:structured-macro ac:name="children" ac:schema-version="1"><ac:parameter ac:name="all">true</ac:parameter><ac:parameter ac:name="sort">title</ac:parameter></ac:structured-macro>`

// Run publishes the tree. Per-page failures land in the report; only
// run-level problems (unreachable or ambiguous root) return an error.
func (o *Orchestrator) Run(ctx context.Context, tree *docs.Tree) (*Report, error) {
	prepared := o.prepare(tree)

	var dest Destination
	if o.opts.DryRun {
		dest = NewDryRunSink()
	} else {
		dest = &remoteDestination{client: o.client}
	}

	rootID, err := o.resolveRoot(ctx, dest)
	if err != nil {
		return nil, err
	}

	report := NewReport()
	o.publishChildren(ctx, dest, tree, prepared, tree.Roots, rootID, report)
	return report, nil
}

// resolveRoot finds or creates the page the whole tree hangs under.
func (o *Orchestrator) resolveRoot(ctx context.Context, dest Destination) (string, error) {
	ref, err := o.resolveWithRetry(ctx, o.opts.RootTitle)
	if err != nil {
		var ambiguous *AmbiguousTitleError
		if errors.As(err, &ambiguous) {
			return "", fmt.Errorf("root page: %w", err)
		}
		if !o.opts.DryRun {
			return "", fmt.Errorf("failed to resolve root page %q: %w", o.opts.RootTitle, err)
		}
		o.log.Warn("could not resolve root page %q (%v), dry run continues as if absent", o.opts.RootTitle, err)
		ref = nil
	}
	if ref != nil {
		return ref.ID, nil
	}

	if !o.opts.CreateRoot {
		return "", fmt.Errorf("root page %q not found in space %s (set create_root to create it)", o.opts.RootTitle, o.opts.Space)
	}

	body := fmt.Sprintf("<p>Documentation published under %s.</p>%s", escapeAttr(o.opts.RootTitle), childrenMacro)
	var rootID string
	err = o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		rootID, err = dest.CreatePage(ctx, o.opts.Space, o.opts.RootTitle, body, "", "confpress root")
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create root page %q: %w", o.opts.RootTitle, err)
	}
	o.log.Info("created root page %q (%s)", o.opts.RootTitle, rootID)
	return rootID, nil
}

// prepare renders every node up front. Cross-page links are patched with the
// whole tree's title index, then the fingerprint is computed over the final
// body plus attachment digests.
func (o *Orchestrator) prepare(tree *docs.Tree) []preparedPage {
	titleByPath := tree.TitleByPath()
	prepared := make([]preparedPage, tree.Len())

	tree.Walk(func(idx int, node *docs.Node) {
		prep := &prepared[idx]

		rendered, err := renderer.Render(node.Source, node.Title, renderer.Options{
			DocDir:     node.Dir,
			DocsRoot:   tree.RootDir,
			FileExists: fileExists,
		})
		if err != nil {
			prep.renderErr = err
			return
		}

		body := PatchCrossLinks(rendered.Body, titleByPath)
		if node.Synthetic {
			body += childrenMacro
		}
		prep.body = body
		prep.warnings = rendered.Warnings

		digests := make([]fingerprint.AttachmentDigest, 0, len(rendered.ImageRefs))
		for _, ref := range rendered.ImageRefs {
			hash, err := fingerprint.File(ref.Path)
			if err != nil {
				prep.warnings = append(prep.warnings, fmt.Sprintf("image %s unreadable, skipped: %v", ref.Filename, err))
				continue
			}
			prep.images = append(prep.images, imageFile{Filename: ref.Filename, Path: ref.Path, Hash: hash})
			digests = append(digests, fingerprint.AttachmentDigest{Filename: ref.Filename, Hash: hash})
		}
		prep.fingerprint = fingerprint.Page(body, digests)
	})

	return prepared
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// publishChildren publishes each child subtree under parentID. Siblings may
// run concurrently; a child page is only ever touched after its parent call
// completed, so ordering holds per path. The run-wide semaphore, not the
// goroutine count, bounds parallel remote work.
func (o *Orchestrator) publishChildren(ctx context.Context, dest Destination, tree *docs.Tree, prepared []preparedPage, children []int, parentID string, report *Report) {
	if o.opts.Concurrency > 1 && !o.opts.DryRun && len(children) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for _, idx := range children {
			idx := idx
			g.Go(func() error {
				o.publishNode(gctx, dest, tree, prepared, idx, parentID, report)
				return nil
			})
		}
		g.Wait()
		return
	}

	for _, idx := range children {
		o.publishNode(ctx, dest, tree, prepared, idx, parentID, report)
	}
}

func (o *Orchestrator) publishNode(ctx context.Context, dest Destination, tree *docs.Tree, prepared []preparedPage, idx int, parentID string, report *Report) {
	node := &tree.Nodes[idx]
	prep := &prepared[idx]

	if parentID == "" {
		o.failSubtree(tree, idx, report, KindAncestorUnavailable,
			fmt.Errorf("no ancestor page available for %q", node.Title))
		return
	}

	if prep.renderErr != nil {
		o.log.Error("render failed for %q: %v", node.Title, prep.renderErr)
		report.add(PublishResult{Title: node.Title, Action: ActionFailed, Kind: KindRender, Err: prep.renderErr})
		o.publishChildren(ctx, dest, tree, prepared, node.Children, parentID, report)
		return
	}

	childParent := o.publishPage(ctx, dest, node, prep, parentID, report)
	o.publishChildren(ctx, dest, tree, prepared, node.Children, childParent, report)
}

// publishPage performs one node's remote work under a run-wide concurrency
// slot and returns the page id the node's children should attach under: the
// node's own page on success, the existing page on a failed update, the
// node's parent otherwise.
func (o *Orchestrator) publishPage(ctx context.Context, dest Destination, node *docs.Node, prep *preparedPage, parentID string, report *Report) string {
	if err := o.acquireSlot(ctx); err != nil {
		report.add(PublishResult{Title: node.Title, Action: ActionFailed, Kind: KindRemoteCall, Err: err})
		return parentID
	}
	defer o.releaseSlot()

	ref, err := o.resolveWithRetry(ctx, node.Title)
	if err != nil {
		var ambiguous *AmbiguousTitleError
		switch {
		case errors.As(err, &ambiguous):
			report.add(PublishResult{Title: node.Title, Action: ActionFailed, Kind: KindAmbiguousTitle, Err: err})
			return parentID
		case o.opts.DryRun:
			prep.warnings = append(prep.warnings, fmt.Sprintf("lookup failed (%v), assuming page is absent", err))
			ref = nil
		default:
			report.add(PublishResult{Title: node.Title, Action: ActionFailed, Kind: KindRemoteCall, Err: err})
			return parentID
		}
	}

	message := VersionMessage(prep.fingerprint)
	var (
		action      Action
		pageID      string
		justCreated bool
	)
	switch {
	case ref == nil:
		err := o.withRetry(ctx, func(ctx context.Context) error {
			var err error
			pageID, err = dest.CreatePage(ctx, o.opts.Space, node.Title, prep.body, parentID, message)
			return err
		})
		if err != nil {
			o.log.Error("create failed for %q: %v", node.Title, err)
			report.add(PublishResult{Title: node.Title, Action: ActionFailed, Kind: KindRemoteCall, Err: err})
			return parentID
		}
		action = ActionCreated
		justCreated = true
		o.log.Info("created %q (%s)", node.Title, pageID)

	case ref.Fingerprint == prep.fingerprint:
		action = ActionSkipped
		pageID = ref.ID
		o.log.Debug("unchanged %q (%s)", node.Title, pageID)

	default:
		pageID = ref.ID
		err := o.withRetry(ctx, func(ctx context.Context) error {
			return dest.UpdatePage(ctx, ref.ID, node.Title, prep.body, ref.Version+1, message)
		})
		if err != nil {
			o.log.Error("update failed for %q: %v", node.Title, err)
			report.add(PublishResult{Title: node.Title, Action: ActionFailed, Kind: KindRemoteCall, Err: err})
			// The page still exists with its previous content, so children
			// can attach under it.
			return ref.ID
		}
		action = ActionUpdated
		o.log.Info("updated %q (%s) to version %d", node.Title, pageID, ref.Version+1)
	}

	attachments, attWarnings := o.syncAttachments(ctx, dest, pageID, prep.images, justCreated)
	warnings := append(append([]string(nil), prep.warnings...), attWarnings...)

	report.add(PublishResult{
		Title:       node.Title,
		Action:      action,
		Warnings:    warnings,
		Attachments: attachments,
	})

	return pageID
}

func (o *Orchestrator) acquireSlot(ctx context.Context) error {
	select {
	case o.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) releaseSlot() { <-o.sem }

// failSubtree marks a node and all its descendants failed without touching
// the server.
func (o *Orchestrator) failSubtree(tree *docs.Tree, idx int, report *Report, kind ErrorKind, err error) {
	node := &tree.Nodes[idx]
	report.add(PublishResult{Title: node.Title, Action: ActionFailed, Kind: kind, Err: err})
	for _, child := range node.Children {
		o.failSubtree(tree, child, report, kind, err)
	}
}

func (o *Orchestrator) resolveWithRetry(ctx context.Context, title string) (*RemotePageRef, error) {
	var ref *RemotePageRef
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		ref, err = o.resolver.Resolve(ctx, title)
		return err
	})
	return ref, err
}

// withRetry runs op with the shared retry policy: a fresh per-attempt
// timeout, exponential backoff, and retries only on transient failures.
// Run cancellation blocks new attempts but never aborts an attempt already
// in flight; each call context carries only its own timeout.
func (o *Orchestrator) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.CallTimeout)
			defer cancel()
			return op(callCtx)
		},
		retry.Context(ctx),
		retry.Attempts(o.opts.RetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(confluence.IsTransient),
		retry.LastErrorOnly(true),
	)
}
