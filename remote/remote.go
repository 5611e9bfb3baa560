package remote

import (
	"context"
	"io"
	"regexp"
	"strings"

	"subgate/config"
)

// File is one subtitle candidate produced by a traversal. ID is whatever
// the source needs to fetch the file again: a path for FTP, a file id for
// Drive.
type File struct {
	ID   string
	Name string
}

// Entry is one item of a directory listing. Ref is the listing reference
// for directories and the download identifier for files.
type Entry struct {
	Name  string
	IsDir bool
	Ref   string
}

// Conn is an open connection to a remote directory source. Close must be
// idempotent: the traversal timeout path and the normal exit path may both
// call it.
type Conn interface {
	List(ctx context.Context, ref string) ([]Entry, error)
	Download(ctx context.Context, fileID string, w io.Writer) error
	Close() error
}

// Source is the capability to connect to one tenant's remote backend.
type Source interface {
	Connect(ctx context.Context) (Conn, error)
	Kind() string
	BaseRef() string
}

var extRe = regexp.MustCompile(`\.[a-z0-9]+$`)

// ExtLower returns the lowercased extension of a filename, dot included,
// or "" when the name has no plain alphanumeric extension.
func ExtLower(name string) string {
	return extRe.FindString(strings.ToLower(name))
}

// IsSubtitle reports whether a filename carries a subtitle extension.
func IsSubtitle(name string) bool {
	return config.SubtitleExts[ExtLower(name)]
}

// Walk enumerates subtitle files under base, recursing at most maxDepth
// directory levels below it. The context is checked before every listing
// call and before every entry, so cancellation halts work promptly. Any
// listing failure aborts the traversal; whatever was accumulated by then is
// returned as-is, never an error.
func Walk(ctx context.Context, conn Conn, base string, maxDepth int) []File {
	files := make([]File, 0, 16)
	var walk func(ref string, depth int) error
	walk = func(ref string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := conn.List(ctx, ref)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch {
			case e.IsDir:
				if depth < maxDepth {
					if err := walk(e.Ref, depth+1); err != nil {
						return err
					}
				}
			case IsSubtitle(e.Name):
				files = append(files, File{ID: e.Ref, Name: e.Name})
			}
		}
		return nil
	}
	_ = walk(base, 0)
	return files
}
