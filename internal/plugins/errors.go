package plugins

import (
	"errors"
	"fmt"
)

// ErrRepositoryURLRequired indicates an empty repository URL.
var ErrRepositoryURLRequired = errors.New("Repository URL is required.")

// ErrBranchRequired indicates an empty branch for a branch switch.
var ErrBranchRequired = errors.New("Repository URL and branch are required.")

// ErrSlugRequired indicates an empty extension slug.
var ErrSlugRequired = errors.New("Plugin slug is required.")

// ErrExtensionNotResolved indicates no entry file could be matched to a clone.
var ErrExtensionNotResolved = errors.New("Could not determine the extension entry file.")

// ErrExtensionDirectoryMissing indicates an update or branch switch without a local clone.
var ErrExtensionDirectoryMissing = errors.New("Extension directory not found.")

// ErrDirectoryNotRepository indicates the target directory exists but holds no git repository.
var ErrDirectoryNotRepository = errors.New("directory exists and is not a Git repository")

// ErrDependencyMissing indicates a required collaborator was not supplied.
var ErrDependencyMissing = errors.New("plugins: dependency not configured")

// DirectoryNotRepositoryError names the directory that blocked a clone.
type DirectoryNotRepositoryError struct {
	Directory string
}

func (directoryError DirectoryNotRepositoryError) Error() string {
	return fmt.Sprintf("Directory %s already exists and is not a Git repository.", directoryError.Directory)
}

// Is matches ErrDirectoryNotRepository.
func (directoryError DirectoryNotRepositoryError) Is(target error) bool {
	return target == ErrDirectoryNotRepository
}
