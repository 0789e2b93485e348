package gitrepo_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/gitrepo"
)

func TestCloneInspectorReportsBranchAndCommit(testInstance *testing.T) {
	repositoryDirectory := testInstance.TempDir()
	repository, initError := git.PlainInit(repositoryDirectory, false)
	require.NoError(testInstance, initError)

	_, remoteError := repository.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"https://github.com/acme/widget.git"}})
	require.NoError(testInstance, remoteError)

	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryDirectory, "widget.yaml"), []byte("name: Widget\n"), 0o644))
	worktree, worktreeError := repository.Worktree()
	require.NoError(testInstance, worktreeError)
	_, addError := worktree.Add("widget.yaml")
	require.NoError(testInstance, addError)
	commitHash, commitError := worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(testInstance, commitError)

	state, inspectError := gitrepo.NewCloneInspector().Inspect(repositoryDirectory)
	require.NoError(testInstance, inspectError)
	require.True(testInstance, state.IsRepository)
	require.Equal(testInstance, "master", state.Branch)
	require.False(testInstance, state.Detached)
	require.Equal(testInstance, commitHash.String(), state.Commit)
	require.Len(testInstance, state.ShortCommit, 7)
	require.Equal(testInstance, "https://github.com/acme/widget.git", state.OriginURL)
}

func TestCloneInspectorHandlesPlainDirectories(testInstance *testing.T) {
	state, inspectError := gitrepo.NewCloneInspector().Inspect(testInstance.TempDir())
	require.NoError(testInstance, inspectError)
	require.False(testInstance, state.IsRepository)
}

func TestCloneInspectorHandlesEmptyRepository(testInstance *testing.T) {
	repositoryDirectory := testInstance.TempDir()
	_, initError := git.PlainInit(repositoryDirectory, false)
	require.NoError(testInstance, initError)

	state, inspectError := gitrepo.NewCloneInspector().Inspect(repositoryDirectory)
	require.NoError(testInstance, inspectError)
	require.True(testInstance, state.IsRepository)
	require.Empty(testInstance, state.Commit)
}
