package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatabaseRef names the database container a document's tables live in.
type DatabaseRef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (d DatabaseRef) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Document is one schema file: a database and the tables declared in it.
type Document struct {
	Database DatabaseRef `yaml:"database"`
	Tables   []Table     `yaml:"tables"`

	// Path is the file the document was read from, if any.
	Path string `yaml:"-"`
}

// Parse decodes a YAML schema document. Unknown fields are rejected so that
// typos in constraint names do not silently fall back to defaults.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty schema document")
		}
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}
	return &doc, nil
}

// LoadFile reads and parses a single schema document.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// LoadPaths loads every document named by paths. Directories contribute all
// of their *.yaml and *.yml files, in lexical order.
func LoadPaths(paths ...string) ([]*Document, error) {
	var docs []*Document
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat schema path: %w", err)
		}
		if !info.IsDir() {
			doc, err := LoadFile(p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema directory: %w", err)
		}
		var files []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			files = append(files, filepath.Join(p, e.Name()))
		}
		sort.Strings(files)
		for _, f := range files {
			doc, err := LoadFile(f)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Validate checks the database reference and every table in the document.
func (d *Document) Validate() error {
	var errs []error
	if d.Database.ID == "" {
		errs = append(errs, fmt.Errorf("database id is required"))
	}
	seen := make(map[string]bool, len(d.Tables))
	for _, t := range d.Tables {
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("duplicate table id %q", t.ID))
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
