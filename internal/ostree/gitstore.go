package ostree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultNotesRef holds the detached metadata of a GitRepository, one note
// per commit.
const DefaultNotesRef = plumbing.ReferenceName("refs/notes/detached")

// GitRepository serves the Repository operations from a git object store.
// Refs map to branches, inline metadata to commit message trailers and
// detached metadata to JSON notes.
type GitRepository struct {
	repo     *git.Repository
	notesRef plumbing.ReferenceName
}

// OpenGitRepository opens the git repository at path.
func OpenGitRepository(path string) (*GitRepository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return NewGitRepository(repo), nil
}

// NewGitRepository wraps an open go-git repository.
func NewGitRepository(repo *git.Repository) *GitRepository {
	return &GitRepository{repo: repo, notesRef: DefaultNotesRef}
}

func branchRef(ref string) plumbing.ReferenceName {
	if strings.HasPrefix(ref, "refs/") {
		return plumbing.ReferenceName(ref)
	}
	return plumbing.NewBranchReferenceName(ref)
}

// ResolveRev resolves a branch name or any git revision expression.
func (g *GitRepository) ResolveRev(_ context.Context, ref string, allowNotFound bool) (string, error) {
	r, err := g.repo.Reference(branchRef(ref), true)
	if err == nil {
		return r.Hash().String(), nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", err
	}

	h, err := g.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			if allowNotFound {
				return "", nil
			}
			return "", fmt.Errorf("%s: %w", ref, ErrRefNotFound)
		}
		return "", err
	}
	return h.String(), nil
}

// LoadCommit reads a commit object. Only the first parent is followed.
func (g *GitRepository) LoadCommit(_ context.Context, rev string) (*Commit, error) {
	c, err := g.repo.CommitObject(plumbing.NewHash(rev))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
		}
		return nil, err
	}

	commit := &Commit{
		Rev:       c.Hash.String(),
		Timestamp: c.Committer.When,
		Metadata:  parseTrailers(c.Message),
	}
	if len(c.ParentHashes) > 0 {
		commit.Parent = c.ParentHashes[0].String()
	}
	return commit, nil
}

// ReadDetachedMetadata reads the commit's note, if any.
func (g *GitRepository) ReadDetachedMetadata(_ context.Context, rev string) (map[string]string, error) {
	tree, _, err := g.notesTree()
	if err != nil || tree == nil {
		return nil, err
	}

	f, err := tree.File(rev)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}

	var md map[string]string
	if err := json.Unmarshal([]byte(content), &md); err != nil {
		return nil, fmt.Errorf("decode detached metadata of %s: %w", rev, err)
	}
	return md, nil
}

// SetDetachedMetadata replaces the commit's note with md.
func (g *GitRepository) SetDetachedMetadata(_ context.Context, rev string, md map[string]string) error {
	if _, err := g.repo.CommitObject(plumbing.NewHash(rev)); err != nil {
		return fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
	}

	data, err := json.Marshal(md)
	if err != nil {
		return err
	}
	blob, err := g.storeBlob(data)
	if err != nil {
		return err
	}

	tree, parent, err := g.notesTree()
	if err != nil {
		return err
	}
	var (
		entries []object.TreeEntry
		parents []plumbing.Hash
	)
	if tree != nil {
		for _, e := range tree.Entries {
			if e.Name != rev {
				entries = append(entries, e)
			}
		}
		parents = append(parents, parent)
	}
	entries = append(entries, object.TreeEntry{Name: rev, Mode: filemode.Regular, Hash: blob})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	treeHash, err := g.storeObject(&object.Tree{Entries: entries})
	if err != nil {
		return err
	}
	sig := object.Signature{Name: "rpmostree-toolbox", Email: "rpmostree-toolbox@localhost", When: time.Now()}
	commitHash, err := g.storeObject(&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      "Notes added by rpmostree-toolbox\n",
		TreeHash:     treeHash,
		ParentHashes: parents,
	})
	if err != nil {
		return err
	}
	return g.repo.Storer.SetReference(plumbing.NewHashReference(g.notesRef, commitHash))
}

// SetRef points the branch ref at rev.
func (g *GitRepository) SetRef(_ context.Context, ref, rev string) error {
	h := plumbing.NewHash(rev)
	if _, err := g.repo.CommitObject(h); err != nil {
		return fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
	}
	return g.repo.Storer.SetReference(plumbing.NewHashReference(branchRef(ref), h))
}

// PruneUnreachable deletes loose objects not reachable from any reference.
func (g *GitRepository) PruneUnreachable(_ context.Context, _ PruneScope) (PruneStats, error) {
	var stats PruneStats
	err := g.repo.Prune(git.PruneOptions{
		Handler: func(h plumbing.Hash) error {
			if obj, err := g.repo.Storer.EncodedObject(plumbing.AnyObject, h); err == nil {
				stats.BytesFreed += obj.Size()
			}
			if err := g.repo.DeleteObject(h); err != nil {
				return err
			}
			stats.ObjectsRemoved++
			return nil
		},
	})
	return stats, err
}

// ListRefs returns the branch names of the repository.
func (g *GitRepository) ListRefs(_ context.Context) ([]string, error) {
	iter, err := g.repo.References()
	if err != nil {
		return nil, err
	}
	var refs []string
	err = iter.ForEach(func(r *plumbing.Reference) error {
		if r.Name().IsBranch() {
			refs = append(refs, r.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(refs)
	return refs, nil
}

func (g *GitRepository) notesTree() (*object.Tree, plumbing.Hash, error) {
	ref, err := g.repo.Reference(g.notesRef, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, plumbing.ZeroHash, nil
		}
		return nil, plumbing.ZeroHash, err
	}
	c, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, plumbing.ZeroHash, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, plumbing.ZeroHash, err
	}
	return tree, c.Hash, nil
}

func (g *GitRepository) storeBlob(data []byte) (plumbing.Hash, error) {
	obj := g.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(data); err != nil {
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return g.repo.Storer.SetEncodedObject(obj)
}

type encoder interface {
	Encode(plumbing.EncodedObject) error
}

func (g *GitRepository) storeObject(o encoder) (plumbing.Hash, error) {
	obj := g.repo.Storer.NewEncodedObject()
	if err := o.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return g.repo.Storer.SetEncodedObject(obj)
}

// parseTrailers reads "Key: value" lines from the last paragraph of a
// commit message. Keys are lower-cased.
func parseTrailers(message string) map[string]string {
	md := make(map[string]string)
	paragraphs := strings.Split(strings.TrimSpace(message), "\n\n")
	if len(paragraphs) < 2 {
		return md
	}
	for _, line := range strings.Split(paragraphs[len(paragraphs)-1], "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			continue
		}
		md[strings.ToLower(key)] = strings.TrimSpace(val)
	}
	return md
}
