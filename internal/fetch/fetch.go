package fetch

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/covci/runner/internal/lfsstore"
)

// Fetcher populates a working directory with the committed file tree,
// resolving large-object pointers into real content.
type Fetcher struct {
	store *lfsstore.Store
	// mediaBaseUrl serves LFS objects as <base>/<oid>.
	mediaBaseUrl string
}

func New(store *lfsstore.Store, mediaBaseUrl string) *Fetcher {
	return &Fetcher{
		store:        store,
		mediaBaseUrl: mediaBaseUrl,
	}
}

type Options struct {
	RepoUrl string
	// Ref is a branch name; empty clones the remote default branch.
	Ref   string
	Depth int
	Dir   string
	Lfs   bool
}

type Result struct {
	Commit string
	// LfsObjects is the number of pointer files resolved.
	LfsObjects int
}

func (f *Fetcher) Fetch(ctx context.Context, opts Options) (*Result, error) {
	cloneOpts := &git.CloneOptions{
		URL:   opts.RepoUrl,
		Depth: opts.Depth,
	}
	if opts.Ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Ref)
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, opts.Dir, false, cloneOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", opts.RepoUrl, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	result := &Result{Commit: head.Hash().String()}

	if opts.Lfs {
		result.LfsObjects, err = f.resolvePointers(opts.Dir)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}
