// Package review defines the shared domain types for a review run: the
// target being reviewed, agent configuration, the per-run review context,
// and the finding/result types produced by a pass.
package review

// Target is a sealed sum type: a review runs against either a remote
// repository handle or a pre-collected local directory tree. isTarget is
// unexported so no other package can add a third variant — the two call
// sites that care (prompt assembly, pre-collection) match exhaustively.
type Target interface {
	isTarget()
	// DisplayName returns a human-readable name for reports and prompts.
	DisplayName() string
}

// Repository is a remote repository handle, identified by its slug
// (e.g. "owner/repo").
type Repository struct {
	Slug string
}

func (Repository) isTarget() {}

// DisplayName returns the repository slug.
func (r Repository) DisplayName() string { return r.Slug }

// LocalDirectory is a local directory tree, pre-collected once at run start
// by the source collector (see pkg/collector). Source holds the joined
// content; it is immutable for the run's duration.
type LocalDirectory struct {
	Path   string
	Source string
}

func (LocalDirectory) isTarget() {}

// DisplayName returns the directory path.
func (d LocalDirectory) DisplayName() string { return d.Path }
