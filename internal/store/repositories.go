package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	repositoryColumnsConstant = "repo_url, owner, name, branch, is_private, installed_version, latest_version, last_checked, last_updated, added_at"
	defaultBranchConstant     = "main"
)

// Repository is a registered extension source.
type Repository struct {
	URL              string
	Owner            string
	Name             string
	Branch           string
	IsPrivate        bool
	InstalledVersion string
	LatestVersion    string
	LastChecked      time.Time
	LastUpdated      time.Time
	AddedAt          time.Time
}

// RepositoryUpdate lists the fields to change; nil fields are left untouched.
type RepositoryUpdate struct {
	Branch           *string
	InstalledVersion *string
	LatestVersion    *string
	LastChecked      *time.Time
	LastUpdated      *time.Time
}

// IsEmpty reports whether the update changes nothing.
func (update RepositoryUpdate) IsEmpty() bool {
	return update.Branch == nil && update.InstalledVersion == nil && update.LatestVersion == nil && update.LastChecked == nil && update.LastUpdated == nil
}

// AddRepository registers a repository. The branch defaults to main and AddedAt to the current time.
func (database *Database) AddRepository(executionContext context.Context, repository Repository) (Repository, error) {
	repository.URL = strings.TrimSpace(repository.URL)
	repository.Branch = strings.TrimSpace(repository.Branch)
	if len(repository.Branch) == 0 {
		repository.Branch = defaultBranchConstant
	}
	if repository.AddedAt.IsZero() {
		repository.AddedAt = database.now()
	}

	exists, existsError := database.repositoryExists(executionContext, repository.URL)
	if existsError != nil {
		return Repository{}, existsError
	}
	if exists {
		return Repository{}, ErrRepositoryExists
	}

	_, insertError := database.connection.ExecContext(executionContext, database.rebind(
		"INSERT INTO repositories ("+repositoryColumnsConstant+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		repository.URL,
		repository.Owner,
		repository.Name,
		repository.Branch,
		repository.IsPrivate,
		repository.InstalledVersion,
		repository.LatestVersion,
		formatTimestamp(repository.LastChecked),
		formatTimestamp(repository.LastUpdated),
		formatTimestamp(repository.AddedAt),
	)
	if insertError != nil {
		return Repository{}, wrapOperation("add repository", insertError)
	}
	repository.AddedAt = parseTimestamp(formatTimestamp(repository.AddedAt))
	return repository, nil
}

// ListRepositories returns every repository, most recently added first.
func (database *Database) ListRepositories(executionContext context.Context) ([]Repository, error) {
	rows, queryError := database.connection.QueryContext(executionContext,
		"SELECT "+repositoryColumnsConstant+" FROM repositories ORDER BY added_at DESC, repo_url ASC")
	if queryError != nil {
		return nil, wrapOperation("list repositories", queryError)
	}
	defer rows.Close()

	repositories := []Repository{}
	for rows.Next() {
		repository, scanError := scanRepository(rows)
		if scanError != nil {
			return nil, wrapOperation("list repositories", scanError)
		}
		repositories = append(repositories, repository)
	}
	if iterationError := rows.Err(); iterationError != nil {
		return nil, wrapOperation("list repositories", iterationError)
	}
	return repositories, nil
}

// GetRepository loads a repository by URL.
func (database *Database) GetRepository(executionContext context.Context, repositoryURL string) (Repository, error) {
	row := database.connection.QueryRowContext(executionContext, database.rebind(
		"SELECT "+repositoryColumnsConstant+" FROM repositories WHERE repo_url = ?"), strings.TrimSpace(repositoryURL))
	repository, scanError := scanRepository(row)
	if errors.Is(scanError, sql.ErrNoRows) {
		return Repository{}, ErrRepositoryNotFound
	}
	if scanError != nil {
		return Repository{}, wrapOperation("get repository", scanError)
	}
	return repository, nil
}

// UpdateRepository applies a partial update.
func (database *Database) UpdateRepository(executionContext context.Context, repositoryURL string, update RepositoryUpdate) error {
	if update.IsEmpty() {
		_, lookupError := database.GetRepository(executionContext, repositoryURL)
		return lookupError
	}

	assignments := []string{}
	arguments := []any{}
	if update.Branch != nil {
		branch := strings.TrimSpace(*update.Branch)
		if len(branch) == 0 {
			branch = defaultBranchConstant
		}
		assignments = append(assignments, "branch = ?")
		arguments = append(arguments, branch)
	}
	if update.InstalledVersion != nil {
		assignments = append(assignments, "installed_version = ?")
		arguments = append(arguments, *update.InstalledVersion)
	}
	if update.LatestVersion != nil {
		assignments = append(assignments, "latest_version = ?")
		arguments = append(arguments, *update.LatestVersion)
	}
	if update.LastChecked != nil {
		assignments = append(assignments, "last_checked = ?")
		arguments = append(arguments, formatTimestamp(*update.LastChecked))
	}
	if update.LastUpdated != nil {
		assignments = append(assignments, "last_updated = ?")
		arguments = append(arguments, formatTimestamp(*update.LastUpdated))
	}
	arguments = append(arguments, strings.TrimSpace(repositoryURL))

	result, updateError := database.connection.ExecContext(executionContext, database.rebind(
		"UPDATE repositories SET "+strings.Join(assignments, ", ")+" WHERE repo_url = ?"), arguments...)
	if updateError != nil {
		return wrapOperation("update repository", updateError)
	}
	return requireAffectedRow(result, "update repository")
}

// RemoveRepository deletes the repository row.
func (database *Database) RemoveRepository(executionContext context.Context, repositoryURL string) error {
	result, deleteError := database.connection.ExecContext(executionContext, database.rebind(
		"DELETE FROM repositories WHERE repo_url = ?"), strings.TrimSpace(repositoryURL))
	if deleteError != nil {
		return wrapOperation("remove repository", deleteError)
	}
	return requireAffectedRow(result, "remove repository")
}

func (database *Database) repositoryExists(executionContext context.Context, repositoryURL string) (bool, error) {
	var count int
	scanError := database.connection.QueryRowContext(executionContext, database.rebind(
		"SELECT COUNT(*) FROM repositories WHERE repo_url = ?"), repositoryURL).Scan(&count)
	if scanError != nil {
		return false, wrapOperation("check repository", scanError)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(destinations ...any) error
}

func scanRepository(scanner rowScanner) (Repository, error) {
	var repository Repository
	var lastChecked, lastUpdated, addedAt string
	scanError := scanner.Scan(
		&repository.URL,
		&repository.Owner,
		&repository.Name,
		&repository.Branch,
		&repository.IsPrivate,
		&repository.InstalledVersion,
		&repository.LatestVersion,
		&lastChecked,
		&lastUpdated,
		&addedAt,
	)
	if scanError != nil {
		return Repository{}, scanError
	}
	repository.LastChecked = parseTimestamp(lastChecked)
	repository.LastUpdated = parseTimestamp(lastUpdated)
	repository.AddedAt = parseTimestamp(addedAt)
	return repository, nil
}

func requireAffectedRow(result sql.Result, operation string) error {
	affectedRows, affectedError := result.RowsAffected()
	if affectedError != nil {
		return wrapOperation(operation, affectedError)
	}
	if affectedRows == 0 {
		return ErrRepositoryNotFound
	}
	return nil
}
