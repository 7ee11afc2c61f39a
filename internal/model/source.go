// Package model defines the data structures for mutation testing.
package model

import "path/filepath"

// Path represents a file system path.
type Path string

// Clean returns the lexically cleaned absolute form of the path. Relative
// paths are left relative when the working directory cannot be determined.
func (p Path) Clean() Path {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return Path(filepath.Clean(string(p)))
	}

	return Path(abs)
}

// File represents a source file registered for a project.
type File struct {
	ID        int64
	ProjectID int64
	Filename  Path // absolute path under Project.Workdir
}
