// Package apiconfig reads and rewrites the operator document (api.yaml) that
// holds the gateway's credential list and provider catalog.
package apiconfig

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/uniapi-stats/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound means the document does not exist.
	ErrNotFound = errors.New("configuration file not found")
	// ErrSyntax means the text is not well-formed YAML.
	ErrSyntax = errors.New("invalid YAML syntax")
	// ErrInvalid means the YAML parsed but its structure is unusable.
	ErrInvalid = errors.New("invalid configuration")
)

// Document is the parsed operator document.
type Document struct {
	Credentials []models.Credential
	Providers   []models.ProviderInfo

	// Warnings lists entries Parse accepted with a fallback.
	Warnings []string
}

// Lookup returns the first credential whose key equals key.
func (d *Document) Lookup(key string) (*models.Credential, bool) {
	if key == "" {
		return nil, false
	}
	for i := range d.Credentials {
		if subtle.ConstantTimeCompare([]byte(d.Credentials[i].API), []byte(key)) == 1 {
			cred := d.Credentials[i]
			return &cred, true
		}
	}
	return nil, false
}

type rawDocument struct {
	Providers []rawProvider    `yaml:"providers"`
	APIKeys   *[]rawCredential `yaml:"api_keys"`
}

type rawCredential struct {
	API  string `yaml:"api"`
	Role string `yaml:"role"`
	Name string `yaml:"name"`
}

type rawProvider struct {
	Provider string     `yaml:"provider"`
	BaseURL  string     `yaml:"base_url"`
	API      stringList `yaml:"api"`
	Model    modelList  `yaml:"model"`
}

// stringList accepts a scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = stringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// modelList accepts entries that are either a plain model name or
// "original: display" mappings.
type modelList []models.ModelMapping

func (l *modelList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: model must be a list", value.Line)
	}
	out := make(modelList, 0, len(value.Content))
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, models.ModelMapping{Original: item.Value, Display: item.Value})
		case yaml.MappingNode:
			for i := 0; i+1 < len(item.Content); i += 2 {
				k, v := item.Content[i], item.Content[i+1]
				if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: model mapping must be original: display", item.Line)
				}
				out = append(out, models.ModelMapping{Original: k.Value, Display: v.Value})
			}
		default:
			return fmt.Errorf("line %d: unsupported model entry", item.Line)
		}
	}
	*l = out
	return nil
}

// Parse parses and validates a document. Credentials must carry an api key.
// A missing or unrecognized role means user; the latter is noted in Warnings.
func Parse(data []byte) (*Document, error) {
	return parse(data, false)
}

// Validate is Parse with unrecognized roles rejected as ErrInvalid. It gates
// documents before they are written.
func Validate(data []byte) error {
	_, err := parse(data, true)
	return err
}

func parse(data []byte, strict bool) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if node.Kind == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalid)
	}

	var raw rawDocument
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if raw.APIKeys == nil {
		return nil, fmt.Errorf("%w: api_keys list is required", ErrInvalid)
	}

	doc := &Document{
		Credentials: make([]models.Credential, 0, len(*raw.APIKeys)),
		Providers:   make([]models.ProviderInfo, 0, len(raw.Providers)),
	}

	for i, rc := range *raw.APIKeys {
		if rc.API == "" {
			return nil, fmt.Errorf("%w: api_keys[%d]: missing api", ErrInvalid, i)
		}
		role := models.Role(rc.Role)
		if role == "" {
			role = models.RoleUser
		}
		if !role.Valid() {
			if strict {
				return nil, fmt.Errorf("%w: api_keys[%d]: unknown role %q", ErrInvalid, i, rc.Role)
			}
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("api_keys[%d]: unknown role %q treated as user", i, rc.Role))
			role = models.RoleUser
		}
		doc.Credentials = append(doc.Credentials, models.Credential{API: rc.API, Role: role, Name: rc.Name})
	}

	for _, rp := range raw.Providers {
		api := []string(rp.API)
		if api == nil {
			api = []string{}
		}
		mappings := []models.ModelMapping(rp.Model)
		if mappings == nil {
			mappings = []models.ModelMapping{}
		}
		doc.Providers = append(doc.Providers, models.ProviderInfo{
			Provider:  rp.Provider,
			BaseURL:   rp.BaseURL,
			API:       api,
			Models:    mappings,
			Supported: models.ClassifyEndpoint(rp.BaseURL) != models.EndpointUnsupported,
		})
	}

	return doc, nil
}

// File is the operator document on disk. Every read goes to disk so edits
// take effect immediately.
type File struct {
	path   string
	logger *zap.Logger

	// serializes Save
	mu sync.Mutex
}

// NewFile creates a File for path.
func NewFile(path string, logger *zap.Logger) *File {
	return &File{path: path, logger: logger}
}

// Path returns the document path.
func (f *File) Path() string { return f.path }

// Raw returns the document text verbatim.
func (f *File) Raw() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return string(data), nil
}

// Load reads and parses the current document.
func (f *File) Load() (*Document, error) {
	raw, err := f.Raw()
	if err != nil {
		return nil, err
	}
	doc, err := Parse([]byte(raw))
	if err != nil {
		f.logger.Error("operator document is unusable", zap.String("path", f.path), zap.Error(err))
		return nil, err
	}
	for _, w := range doc.Warnings {
		f.logger.Warn("operator document entry degraded", zap.String("path", f.path), zap.String("detail", w))
	}
	return doc, nil
}

// Save validates content and atomically replaces the document with it. On
// any error the previous document is left untouched.
func (f *File) Save(content string) error {
	if err := Validate([]byte(content)); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	mode := os.FileMode(0644)
	if info, err := os.Stat(f.path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}

	f.logger.Info("operator document saved", zap.String("path", f.path), zap.Int("bytes", len(content)))
	return nil
}
