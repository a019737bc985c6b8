package ostree

import (
	"context"
	"errors"
	"fmt"
)

// ErrStop can be returned from a ForEach callback to end the walk early.
var ErrStop = errors.New("stop iteration")

// Ancestry iterates over a commit and its parents, newest first.
//
//	it := ostree.NewAncestry(repo, rev)
//	for it.Next(ctx) {
//		c := it.Commit()
//	}
//	if err := it.Err(); err != nil { ... }
type Ancestry struct {
	repo Repository
	next string
	cur  *Commit
	seen map[string]struct{}
	err  error
}

// NewAncestry returns an iterator starting at rev. An empty rev yields nothing.
func NewAncestry(repo Repository, rev string) *Ancestry {
	return &Ancestry{repo: repo, next: rev, seen: make(map[string]struct{})}
}

// Next loads the next commit in the chain. It returns false at the root or
// on error.
func (a *Ancestry) Next(ctx context.Context) bool {
	if a.err != nil || a.next == "" {
		return false
	}
	if _, ok := a.seen[a.next]; ok {
		a.err = fmt.Errorf("commit %s appears twice in its own history", a.next)
		return false
	}
	if err := ctx.Err(); err != nil {
		a.err = err
		return false
	}

	c, err := a.repo.LoadCommit(ctx, a.next)
	if err != nil {
		a.err = fmt.Errorf("load commit %s: %w", a.next, err)
		return false
	}
	a.seen[c.Rev] = struct{}{}
	a.cur = c
	a.next = c.Parent
	return true
}

// Commit returns the commit loaded by the last call to Next.
func (a *Ancestry) Commit() *Commit {
	return a.cur
}

// Err returns the first error encountered by the walk.
func (a *Ancestry) Err() error {
	return a.err
}

// ForEach calls fn for every commit from rev down to the root.
func ForEach(ctx context.Context, repo Repository, rev string, fn func(*Commit) error) error {
	it := NewAncestry(repo, rev)
	for it.Next(ctx) {
		if err := fn(it.Commit()); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return it.Err()
}
