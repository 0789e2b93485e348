// Package extensions discovers installed extensions beneath the extensions
// root, validates their YAML manifests, tracks which of them are active, and
// resolves a freshly cloned repository to the entry file of the extension it
// provides.
//
// An extension is a directory directly under the root holding at least one
// top-level entry file whose manifest declares a name. Extensions are
// addressed by slug, the entry file path relative to the root using forward
// slashes (for example "widget/widget.yaml").
package extensions
