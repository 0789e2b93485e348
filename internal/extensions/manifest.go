package extensions

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

const (
	manifestSchemaResourceConstant       = "manifest.schema.json"
	defaultManifestVersionConstant       = "0.0.1"
	manifestReadErrorTemplateConstant    = "read manifest %s: %w"
	manifestDecodeErrorTemplateConstant  = "%w: %s: %v"
	manifestSchemaErrorTemplateConstant  = "compile manifest schema: %w"
	issueTemplateConstant                = "%s: %s"
	instanceRootLocationConstant         = "/"
	instanceLocationSeparatorConstant    = "/"
	invalidManifestMessageConstant       = "invalid extension manifest"
	manifestSchemaUnavailableMessageText = "manifest schema unavailable"
)

//go:embed manifest.schema.json
var manifestSchemaDocument []byte

// ErrInvalidManifest indicates an entry file without a usable manifest.
var ErrInvalidManifest = errors.New(invalidManifestMessageConstant)

// DefaultManifestVersion is reported for manifests that omit a version.
const DefaultManifestVersion = defaultManifestVersionConstant

// Manifest describes an extension.
type Manifest struct {
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Author      string   `yaml:"author" json:"author,omitempty"`
	URI         string   `yaml:"uri" json:"uri,omitempty"`
	Requires    []string `yaml:"requires" json:"requires,omitempty"`
}

// IsValid reports whether the manifest names its extension.
func (manifest Manifest) IsValid() bool {
	return len(strings.TrimSpace(manifest.Name)) > 0
}

// ReadManifest parses the entry file at path. A missing version defaults to DefaultManifestVersion.
func ReadManifest(path string) (Manifest, error) {
	contents, readError := os.ReadFile(path)
	if readError != nil {
		return Manifest{}, fmt.Errorf(manifestReadErrorTemplateConstant, path, readError)
	}
	return parseManifest(path, contents)
}

func parseManifest(path string, contents []byte) (Manifest, error) {
	var manifest Manifest
	if decodeError := yaml.Unmarshal(contents, &manifest); decodeError != nil {
		return Manifest{}, fmt.Errorf(manifestDecodeErrorTemplateConstant, ErrInvalidManifest, path, decodeError)
	}
	manifest.Name = strings.TrimSpace(manifest.Name)
	manifest.Version = strings.TrimSpace(manifest.Version)
	if len(manifest.Version) == 0 {
		manifest.Version = defaultManifestVersionConstant
	}
	return manifest, nil
}

// ManifestValidator checks entry files against the embedded manifest schema.
type ManifestValidator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// NewManifestValidator compiles the embedded schema.
func NewManifestValidator() (*ManifestValidator, error) {
	schemaDocument, unmarshalError := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaDocument))
	if unmarshalError != nil {
		return nil, fmt.Errorf(manifestSchemaErrorTemplateConstant, unmarshalError)
	}
	compiler := jsonschema.NewCompiler()
	if resourceError := compiler.AddResource(manifestSchemaResourceConstant, schemaDocument); resourceError != nil {
		return nil, fmt.Errorf(manifestSchemaErrorTemplateConstant, resourceError)
	}
	schema, compileError := compiler.Compile(manifestSchemaResourceConstant)
	if compileError != nil {
		return nil, fmt.Errorf(manifestSchemaErrorTemplateConstant, compileError)
	}
	return &ManifestValidator{schema: schema, printer: message.NewPrinter(language.English)}, nil
}

// Validate returns the schema violations of the YAML document, sorted by location.
// An empty result means the document conforms.
func (validator *ManifestValidator) Validate(contents []byte) ([]string, error) {
	if validator == nil || validator.schema == nil {
		return nil, errors.New(manifestSchemaUnavailableMessageText)
	}

	var document any
	if decodeError := yaml.Unmarshal(contents, &document); decodeError != nil {
		return []string{decodeError.Error()}, nil
	}
	encodedDocument, encodeError := json.Marshal(document)
	if encodeError != nil {
		return []string{encodeError.Error()}, nil
	}
	instance, instanceError := jsonschema.UnmarshalJSON(bytes.NewReader(encodedDocument))
	if instanceError != nil {
		return nil, instanceError
	}

	validationError := validator.schema.Validate(instance)
	if validationError == nil {
		return nil, nil
	}
	var schemaViolation *jsonschema.ValidationError
	if !errors.As(validationError, &schemaViolation) {
		return nil, validationError
	}

	issues := []string{}
	validator.collectIssues(schemaViolation, &issues)
	sort.Strings(issues)
	return issues, nil
}

// ValidateFile reads path and validates its contents.
func (validator *ManifestValidator) ValidateFile(path string) ([]string, error) {
	contents, readError := os.ReadFile(path)
	if readError != nil {
		return nil, fmt.Errorf(manifestReadErrorTemplateConstant, path, readError)
	}
	return validator.Validate(contents)
}

func (validator *ManifestValidator) collectIssues(violation *jsonschema.ValidationError, issues *[]string) {
	if len(violation.Causes) == 0 {
		location := instanceRootLocationConstant + strings.Join(violation.InstanceLocation, instanceLocationSeparatorConstant)
		*issues = append(*issues, fmt.Sprintf(issueTemplateConstant, location, violation.ErrorKind.LocalizedString(validator.printer)))
		return
	}
	for _, cause := range violation.Causes {
		validator.collectIssues(cause, issues)
	}
}
