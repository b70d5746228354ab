// Package git looks up where a guest config file came from when it lives in
// a git work tree: the commit, branch and tags of HEAD, and whether the file
// differs from what is committed.
package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Provenance describes the git state of one config file.
type Provenance struct {
	// File is the config path relative to the work tree root, slash separated
	File string `json:"file" yaml:"file"`
	// Root is the work tree root
	Root string `json:"root" yaml:"root"`
	// CommitHash is the current HEAD commit hash
	CommitHash string `json:"commit" yaml:"commit"`
	// Branch is the current branch name
	Branch string `json:"branch" yaml:"branch"`
	// Tags pointing at HEAD
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Modified is set when the file is untracked or has uncommitted changes
	Modified bool `json:"modified" yaml:"modified"`
}

// GetProvenance opens the repository configPath belongs to, seeking upwards
// from the file's directory.
func GetProvenance(configPath string) (*Provenance, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", configPath, err)
	}

	repo, err := git.PlainOpenWithOptions(filepath.Dir(absPath), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to find a Git repository that path %q belongs to: %w", configPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree for %q: %w", configPath, err)
	}
	root := worktree.Filesystem.Root()

	relPath, err := filepath.Rel(root, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return nil, fmt.Errorf("config %q is outside work tree %q", configPath, root)
	}
	relPath = filepath.ToSlash(relPath)

	headRef, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference for %q: %w", root, err)
	}

	tags, err := headTags(repo, headRef.Hash())
	if err != nil {
		return nil, err
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree status for %q: %w", root, err)
	}
	modified := false
	if fs, ok := status[relPath]; ok {
		modified = fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified
	}

	return &Provenance{
		File:       relPath,
		Root:       root,
		CommitHash: headRef.Hash().String(),
		Branch:     headRef.Name().Short(),
		Tags:       tags,
		Modified:   modified,
	}, nil
}

// headTags finds all tags pointing to the given commit.
func headTags(repo *git.Repository, head plumbing.Hash) ([]string, error) {
	tagRefs, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	var tags []string
	err = tagRefs.ForEach(func(ref *plumbing.Reference) error {
		revHash, err := repo.ResolveRevision(plumbing.Revision(ref.Name()))
		if err != nil {
			return fmt.Errorf("failed to get tag commit object for tag %q: %w", ref.Name().Short(), err)
		}
		if *revHash == head {
			tags = append(tags, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over tags: %w", err)
	}
	return tags, nil
}

// ShortHash is the first seven characters of the commit hash.
func (p *Provenance) ShortHash() string {
	if len(p.CommitHash) < 7 {
		return p.CommitHash
	}
	return p.CommitHash[:7]
}

// String renders "file@branch (hash[, tags][, modified])".
func (p *Provenance) String() string {
	details := []string{p.ShortHash()}
	if len(p.Tags) > 0 {
		details = append(details, strings.Join(p.Tags, " "))
	}
	if p.Modified {
		details = append(details, "modified")
	}
	return fmt.Sprintf("%s@%s (%s)", p.File, p.Branch, strings.Join(details, ", "))
}
