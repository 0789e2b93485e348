package githubauth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	tokenSourceSeparatorConstant               = ":"
	environmentTokenSourceTypeValueConstant    = "env"
	fileTokenSourceTypeValueConstant           = "file"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "token file path must be provided"
	environmentTokenMissingTemplateConstant    = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read token file %s: %w"
	fileTokenEmptyErrorTemplateConstant        = "token file %s is empty"
	unsupportedTokenSourceTemplateConstant     = "unsupported token source type %q"
)

// TokenSourceType enumerates where a configured token is read from.
type TokenSourceType string

// Token source types.
const (
	TokenSourceTypeNone        TokenSourceType = ""
	TokenSourceTypeEnvironment TokenSourceType = TokenSourceType(environmentTokenSourceTypeValueConstant)
	TokenSourceTypeFile        TokenSourceType = TokenSourceType(fileTokenSourceTypeValueConstant)
)

// TokenSource locates a token outside the settings store, such as "env:NAME" or "file:/run/secrets/token".
type TokenSource struct {
	Type      TokenSourceType
	Reference string
}

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// ParseTokenSource interprets a textual declaration. A bare value names an environment variable and an empty value disables the source.
func ParseTokenSource(sourceValue string) (TokenSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return TokenSource{}, nil
	}

	components := strings.SplitN(trimmedValue, tokenSourceSeparatorConstant, 2)
	if len(components) == 1 {
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	reference := strings.TrimSpace(components[1])
	switch sourceType := strings.ToLower(strings.TrimSpace(components[0])); sourceType {
	case environmentTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSource{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: reference}, nil
	case fileTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return TokenSource{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeFile, Reference: reference}, nil
	default:
		return TokenSource{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, sourceType)
	}
}

// Read resolves the token named by the source.
func (source TokenSource) Read(lookup EnvironmentLookup, reader FileReader) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if reader == nil {
		reader = os.ReadFile
	}

	switch source.Type {
	case TokenSourceTypeNone:
		return "", nil
	case TokenSourceTypeEnvironment:
		value, found := lookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case TokenSourceTypeFile:
		contents, readError := reader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, source.Reference, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyErrorTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, source.Type)
	}
}
