package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURLConstant              = "https://api.github.com"
	latestReleasePathTemplateConstant   = "/repos/%s/%s/releases/latest"
	branchesPathTemplateConstant        = "/repos/%s/%s/branches"
	acceptHeaderNameConstant            = "Accept"
	acceptHeaderValueConstant           = "application/vnd.github.v3+json"
	authorizationHeaderNameConstant     = "Authorization"
	authorizationHeaderTemplateConstant = "token %s"
	userAgentHeaderNameConstant         = "User-Agent"
	defaultUserAgentConstant            = "gitplugins"
	versionPrefixConstant               = "v"
	defaultReleaseVersionConstant       = "0.0.1"
	defaultBranchConstant               = "main"
	branchesPerPageConstant             = "100"
	apiErrorTemplateConstant            = "GitHub API error: %s"
	requestBuildErrorTemplateConstant   = "build GitHub request: %w"
	requestErrorTemplateConstant        = "GitHub request failed: %w"
	responseDecodeErrorTemplateConstant = "%w: %v"
	maximumResponseBodyBytesConstant    = 4 << 20
	defaultRequestTimeoutConstant       = 30 * time.Second
	ownerFieldConstant                  = "owner"
	repositoryFieldConstant             = "repository"
	statusFieldConstant                 = "status"
)

// ErrInvalidResponse indicates a response body that does not match the expected shape.
var ErrInvalidResponse = errors.New("invalid response from GitHub API")

// HTTPClient performs HTTP requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// APIError reports an unexpected HTTP status from GitHub.
type APIError struct {
	StatusCode int
	Status     string
}

func (apiError APIError) Error() string {
	return fmt.Sprintf(apiErrorTemplateConstant, apiError.Status)
}

// Config customizes the client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client queries release and branch metadata.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	userAgent  string
	logger     *zap.Logger
}

// NewClient constructs a client. A nil httpClient gets a default client bounded by the configured timeout.
func NewClient(httpClient HTTPClient, configuration Config, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := configuration.Timeout
		if timeout <= 0 {
			timeout = defaultRequestTimeoutConstant
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(baseURL) == 0 {
		baseURL = defaultBaseURLConstant
	}
	userAgent := strings.TrimSpace(configuration.UserAgent)
	if len(userAgent) == 0 {
		userAgent = defaultUserAgentConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, userAgent: userAgent, logger: logger}
}

type releaseResponse struct {
	TagName string `json:"tag_name"`
}

type branchResponse struct {
	Name string `json:"name"`
}

// LatestVersion returns the newest release tag without a leading "v".
// A repository without releases reports the tracked branch, or main when none is given.
func (client *Client) LatestVersion(executionContext context.Context, owner string, name string, branch string, token string) (string, error) {
	response, requestError := client.get(executionContext, fmt.Sprintf(latestReleasePathTemplateConstant, url.PathEscape(owner), url.PathEscape(name)), nil, token)
	if requestError != nil {
		return "", requestError
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		var release releaseResponse
		if decodeError := json.NewDecoder(io.LimitReader(response.Body, maximumResponseBodyBytesConstant)).Decode(&release); decodeError != nil {
			return "", fmt.Errorf(responseDecodeErrorTemplateConstant, ErrInvalidResponse, decodeError)
		}
		version := strings.TrimLeft(strings.TrimSpace(release.TagName), versionPrefixConstant)
		if len(version) == 0 {
			return defaultReleaseVersionConstant, nil
		}
		return version, nil
	case http.StatusNotFound:
		trimmedBranch := strings.TrimSpace(branch)
		if len(trimmedBranch) == 0 {
			return defaultBranchConstant, nil
		}
		return trimmedBranch, nil
	default:
		client.logger.Warn("GitHub release lookup failed", zap.String(ownerFieldConstant, owner), zap.String(repositoryFieldConstant, name), zap.Int(statusFieldConstant, response.StatusCode))
		return "", APIError{StatusCode: response.StatusCode, Status: response.Status}
	}
}

// Branches lists branch names in the order GitHub returns them.
func (client *Client) Branches(executionContext context.Context, owner string, name string, token string) ([]string, error) {
	query := url.Values{}
	query.Set("per_page", branchesPerPageConstant)
	response, requestError := client.get(executionContext, fmt.Sprintf(branchesPathTemplateConstant, url.PathEscape(owner), url.PathEscape(name)), query, token)
	if requestError != nil {
		return nil, requestError
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		client.logger.Warn("GitHub branch listing failed", zap.String(ownerFieldConstant, owner), zap.String(repositoryFieldConstant, name), zap.Int(statusFieldConstant, response.StatusCode))
		return nil, APIError{StatusCode: response.StatusCode, Status: response.Status}
	}

	var branches []branchResponse
	if decodeError := json.NewDecoder(io.LimitReader(response.Body, maximumResponseBodyBytesConstant)).Decode(&branches); decodeError != nil {
		return nil, fmt.Errorf(responseDecodeErrorTemplateConstant, ErrInvalidResponse, decodeError)
	}
	if branches == nil {
		return nil, fmt.Errorf(responseDecodeErrorTemplateConstant, ErrInvalidResponse, "null branch list")
	}

	names := make([]string, 0, len(branches))
	for _, branch := range branches {
		branchName := strings.TrimSpace(branch.Name)
		if len(branchName) == 0 {
			continue
		}
		names = append(names, branchName)
	}
	return names, nil
}

func (client *Client) get(executionContext context.Context, path string, query url.Values, token string) (*http.Response, error) {
	endpoint := client.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	request, buildError := http.NewRequestWithContext(executionContext, http.MethodGet, endpoint, nil)
	if buildError != nil {
		return nil, fmt.Errorf(requestBuildErrorTemplateConstant, buildError)
	}
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	request.Header.Set(userAgentHeaderNameConstant, client.userAgent)
	if trimmedToken := strings.TrimSpace(token); len(trimmedToken) > 0 {
		request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(authorizationHeaderTemplateConstant, trimmedToken))
	}

	response, requestError := client.httpClient.Do(request)
	if requestError != nil {
		return nil, fmt.Errorf(requestErrorTemplateConstant, requestError)
	}
	return response, nil
}
