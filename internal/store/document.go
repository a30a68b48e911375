// Package store decodes the configuration store document that drives the
// processing job: cluster credentials, object-store endpoint, entity
// catalog and storage paths.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/c360/c360cfg/internal/log"
)

// ErrNotFound is returned by Load when the store file does not exist.
var ErrNotFound = errors.New("configuration store not found")

// Document is the typed view of the configuration store. Optional leaves
// are pointers so that "absent" and "set to empty" stay distinguishable;
// absent sections decode to zero values.
type Document struct {
	General    General    `yaml:"general"`
	Processing Processing `yaml:"processing"`
}

// General holds cluster-wide settings.
type General struct {
	Client    *string           `yaml:"client"`
	Couchbase Couchbase         `yaml:"couchbase"`
	S3        S3                `yaml:"s3"`
	SSH       map[string]SSHKey `yaml:"ssh"`
}

// Couchbase names the buckets the job reads and writes.
type Couchbase struct {
	Bucket     *string `yaml:"bucket"`
	Index      *string `yaml:"index"`
	Statistics *string `yaml:"statistics"`
}

// S3 holds the object-store endpoint and credentials.
type S3 struct {
	Endpoint  *string `yaml:"endpoint"`
	AccessKey *string `yaml:"accesskey"`
	SecretKey *string `yaml:"secretkey"`
}

// SSHKey is one private key to materialize under ~/.ssh.
type SSHKey struct {
	Key      string `yaml:"key"`
	Filename string `yaml:"filename"`
}

// Processing describes the job's inputs and storage layout.
type Processing struct {
	Entities Catalog  `yaml:"entities"`
	Paths    Paths    `yaml:"paths"`
	Internal Internal `yaml:"internal"`
	Local    Paths    `yaml:"local"`
}

// Paths are the logical storage locations of the job.
type Paths struct {
	Source       *string `yaml:"source"`
	Intermediate *string `yaml:"intermediate"`
	Final        *string `yaml:"final"`
}

// Internal holds job-private locations.
type Internal struct {
	Temporary *string `yaml:"temporary"`
}

// StringOr dereferences p, returning def when p is nil.
func StringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// SSHKeyNames returns the configured key names in sorted order.
func (g General) SSHKeyNames() []string {
	names := make([]string, 0, len(g.SSH))
	for name := range g.SSH {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes a store document. JSON input is accepted as well.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return &doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing configuration store: %w", err)
	}
	return &doc, nil
}

// Load reads and decodes the store file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: store path comes from settings
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading configuration store: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		log.ErrorErr(log.CatStore, "Failed to parse configuration store", err, "path", path)
		return nil, err
	}

	log.Debug(log.CatStore, "Loaded configuration store",
		"path", path,
		"entities", len(doc.Processing.Entities.Entities),
		"ssh_keys", len(doc.General.SSH))
	return doc, nil
}
