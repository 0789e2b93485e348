package gitrepo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	originRemoteNameConstant        = "origin"
	inspectionErrorTemplateConstant = "inspect %s: %w"
	shortCommitHashLengthConstant   = 7
)

// CloneState summarizes the checkout found inside an extension directory.
type CloneState struct {
	IsRepository bool   `json:"is_repository"`
	Branch       string `json:"branch,omitempty"`
	Detached     bool   `json:"detached,omitempty"`
	Commit       string `json:"commit,omitempty"`
	ShortCommit  string `json:"short_commit,omitempty"`
	OriginURL    string `json:"origin_url,omitempty"`
}

// CloneInspector reads local clone metadata without invoking the git binary.
type CloneInspector struct{}

// NewCloneInspector constructs a CloneInspector.
func NewCloneInspector() CloneInspector {
	return CloneInspector{}
}

// Inspect opens the repository at directory. A directory that is not a repository yields a zero CloneState.
func (inspector CloneInspector) Inspect(directory string) (CloneState, error) {
	repository, openError := git.PlainOpen(directory)
	if openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return CloneState{}, nil
		}
		return CloneState{}, fmt.Errorf(inspectionErrorTemplateConstant, directory, openError)
	}

	state := CloneState{IsRepository: true}
	if remote, remoteError := repository.Remote(originRemoteNameConstant); remoteError == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			state.OriginURL = urls[0]
		}
	}

	head, headError := repository.Head()
	if headError != nil {
		if errors.Is(headError, plumbing.ErrReferenceNotFound) {
			return state, nil
		}
		return CloneState{}, fmt.Errorf(inspectionErrorTemplateConstant, directory, headError)
	}

	state.Commit = head.Hash().String()
	state.ShortCommit = state.Commit
	if len(state.ShortCommit) > shortCommitHashLengthConstant {
		state.ShortCommit = state.ShortCommit[:shortCommitHashLengthConstant]
	}
	if head.Name().IsBranch() {
		state.Branch = head.Name().Short()
	} else {
		state.Detached = true
	}
	return state, nil
}
