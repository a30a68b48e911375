// Package paths normalizes storage locations used by the processing job.
// A location is either a directory on the shared local filesystem or a
// prefix inside an object-store bucket.
package paths

import "strings"

// Separator terminates every normalized location.
const Separator = "/"

// ObjectStoreScheme is the canonical scheme understood by s3cmd.
const ObjectStoreScheme = "s3"

// alternateSchemes are Hadoop connector spellings of the same backend.
var alternateSchemes = []string{"s3a", "s3n"}

// Kind tells whether a Location is local or object-store backed.
type Kind int

const (
	Local Kind = iota
	ObjectStore
)

func (k Kind) String() string {
	if k == ObjectStore {
		return "object-store"
	}
	return "local"
}

// Location is a parsed, normalized storage location.
// For ObjectStore locations Path is relative to the scheme marker
// ("bucket/prefix/"); for Local locations it is the full directory path.
type Location struct {
	Kind   Kind
	Scheme string
	Path   string
}

// Parse normalizes raw and classifies it.
//
//   - "s3a://bucket/x" -> ObjectStore{s3, "bucket/x/"}
//   - "s3://bucket/x/" -> ObjectStore{s3, "bucket/x/"}
//   - "/nfsmount/c360" -> Local{"/nfsmount/c360/"}
func Parse(raw string) Location {
	normalized := Normalize(raw)
	marker := ObjectStoreScheme + "://"
	if rest, ok := strings.CutPrefix(normalized, marker); ok {
		return Location{Kind: ObjectStore, Scheme: ObjectStoreScheme, Path: rest}
	}
	return Location{Kind: Local, Path: normalized}
}

// IsRemote reports whether the location lives in the object store.
func (l Location) IsRemote() bool {
	return l.Kind == ObjectStore
}

// String renders the location in its canonical form.
func (l Location) String() string {
	if l.Kind == ObjectStore {
		return l.Scheme + "://" + l.Path
	}
	return l.Path
}

// Join appends a relative name to the location.
func (l Location) Join(name string) string {
	return l.String() + strings.TrimPrefix(name, Separator)
}

// Normalize rewrites the alternate object-store schemes to the canonical
// one and guarantees exactly one trailing separator. Anything else passes
// through unchanged.
func Normalize(raw string) string {
	return EnsureTrailingSlash(canonicalScheme(raw))
}

// EnsureTrailingSlash appends Separator unless s already ends with it.
func EnsureTrailingSlash(s string) string {
	if strings.HasSuffix(s, Separator) {
		return s
	}
	return s + Separator
}

func canonicalScheme(raw string) string {
	for _, scheme := range alternateSchemes {
		if rest, ok := strings.CutPrefix(raw, scheme+"://"); ok {
			return ObjectStoreScheme + "://" + rest
		}
	}
	return raw
}

// Staging directories below the temporary path. The transfer scripts
// create them and the job reads and writes through them.
const (
	StagingRaw     = "raw"
	StagingParquet = "parquet"
	StagingJSON    = "json"
)
