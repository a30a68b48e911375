package environment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/c360/c360cfg/internal/log"
	"github.com/c360/c360cfg/internal/paths"
	"github.com/c360/c360cfg/internal/store"
)

// Keys produced by the resolver, besides the prerequisites.
const (
	KeyPythonIOEncoding = "PYTHONIOENCODING"
	KeyPath             = "PATH"

	KeyClient             = "C360_CLIENT"
	KeyDataBucket         = "CB_DATA_BUCKET"
	KeyIndexBucket        = "CB_INDEX_BUCKET"
	KeyStatisticsBucket   = "CB_STATISTICS_BUCKET"
	KeyS3Endpoint         = "S3_ENDPOINT"
	KeyS3AccessKey        = "S3_ACCESSKEY"
	KeyS3SecretKey        = "S3_SECRETKEY"
	KeySourcePath         = "C360_SOURCE_PATH"
	KeyIntermediatePath   = "C360_INTERMEDIATE_PATH"
	KeyTargetPath         = "C360_TARGET_PATH"
	KeyTempPath           = "C360_TEMP_PATH"
	KeyLocalSource        = "C360_LOCAL_SOURCE_PATH"
	KeyLocalIntermediate  = "C360_LOCAL_INTERMEDIATE_PATH"
	KeyLocalTarget        = "C360_LOCAL_TARGET_PATH"
	keyEnvironment        = "C360_ENVIRONMENT"
	defaultBucket         = "c360"
	defaultStatsBucket    = "c360_statistics"
	defaultSecretKey      = "ignored"
	defaultSharedMount    = "/nfsmount/"
	pythonIOEncodingValue = "utf8"
)

// Source names the tier a derived key was resolved from.
type Source int

const (
	SourceDefault Source = iota
	SourceStore
	SourceEnv
)

func (s Source) String() string {
	switch s {
	case SourceEnv:
		return "env"
	case SourceStore:
		return "store"
	default:
		return "default"
	}
}

// Options configures a Resolver.
type Options struct {
	// Lookup reads the process environment. Default: OSLookup.
	Lookup LookupFunc

	// Prerequisites overrides the mandatory variable list.
	// Default: Prerequisites.
	Prerequisites []string

	// HostFile is the host startup file holding the master assignments.
	// Empty skips master discovery from a file.
	HostFile string

	// ExecutableDir is appended to PATH when it is not already there.
	// Empty skips the PATH entry.
	ExecutableDir string
}

// Report describes how a table was assembled.
type Report struct {
	// Missing is the number of unset prerequisite variables.
	Missing int

	// MasterErr is set when no cluster master address could be built.
	// It wraps ErrUnresolvableMaster.
	MasterErr error

	// Sources records which tier each derived key came from.
	Sources map[string]Source
}

// Resolver assembles the environment table. It is used once per run.
type Resolver struct {
	opts    Options
	table   *Table
	sources map[string]Source
	missing int
	checked bool
}

// NewResolver creates a resolver and records the process bootstrap keys.
func NewResolver(opts Options) *Resolver {
	if opts.Lookup == nil {
		opts.Lookup = OSLookup
	}
	if opts.Prerequisites == nil {
		opts.Prerequisites = Prerequisites
	}

	r := &Resolver{
		opts:    opts,
		table:   NewTable(),
		sources: make(map[string]Source),
	}

	r.table.set(KeyPythonIOEncoding, pythonIOEncodingValue)
	if dir := opts.ExecutableDir; dir != "" {
		current, _ := opts.Lookup(KeyPath)
		if !slices.Contains(filepath.SplitList(current), dir) {
			r.table.set(KeyPath, "${PATH}:"+dir)
		}
	}
	return r
}

// CheckPrerequisites validates the mandatory variables once and returns
// the number of missing ones.
func (r *Resolver) CheckPrerequisites() int {
	if !r.checked {
		r.missing = CheckPrerequisites(r.opts.Lookup, r.opts.Prerequisites, r.table)
		r.checked = true
	}
	return r.missing
}

// Resolve completes the table. Every derived key takes the process
// environment value if set, else the store value if present, else its
// default. An unresolvable master is reported, not returned as an error;
// missing prerequisites are.
func (r *Resolver) Resolve(doc *store.Document) (*Table, Report, error) {
	if missing := r.CheckPrerequisites(); missing > 0 {
		return nil, Report{Missing: missing}, fmt.Errorf("%w: %d missing", ErrMissingPrerequisites, missing)
	}
	if doc == nil {
		doc = &store.Document{}
	}

	report := Report{Sources: r.sources}

	master, err := r.resolveMaster()
	if err != nil {
		report.MasterErr = err
	}
	r.table.set(MasterKey, master)

	general := doc.General
	r.table.set(KeyClient, r.pick(KeyClient, general.Client, r.table.Value(keyEnvironment)))
	r.table.set(KeyDataBucket, r.pick(KeyDataBucket, general.Couchbase.Bucket, defaultBucket))
	r.table.set(KeyIndexBucket, r.pick(KeyIndexBucket, general.Couchbase.Index, defaultBucket))
	r.table.set(KeyStatisticsBucket, r.pick(KeyStatisticsBucket, general.Couchbase.Statistics, defaultStatsBucket))
	r.table.set(KeyS3Endpoint, r.pick(KeyS3Endpoint, general.S3.Endpoint, ""))
	r.table.set(KeyS3AccessKey, r.pick(KeyS3AccessKey, general.S3.AccessKey, ""))
	r.table.set(KeyS3SecretKey, r.pick(KeyS3SecretKey, general.S3.SecretKey, defaultSecretKey))

	proc := doc.Processing
	source := r.pickPath(KeySourcePath, proc.Paths.Source, defaultSharedMount)
	intermediate := r.pickPath(KeyIntermediatePath, proc.Paths.Intermediate, defaultSharedMount)
	target := r.pickPath(KeyTargetPath, proc.Paths.Final, defaultSharedMount)
	temp := r.pickPath(KeyTempPath, proc.Internal.Temporary, defaultSharedMount)

	r.table.set(KeySourcePath, source)
	r.table.set(KeyIntermediatePath, intermediate)
	r.table.set(KeyTargetPath, target)
	r.table.set(KeyTempPath, temp)

	r.table.set(KeyLocalSource, r.pickPath(KeyLocalSource, proc.Local.Source, localDefault(source, temp, paths.StagingRaw)))
	r.table.set(KeyLocalIntermediate, r.pickPath(KeyLocalIntermediate, proc.Local.Intermediate, localDefault(intermediate, temp, paths.StagingParquet)))
	r.table.set(KeyLocalTarget, r.pickPath(KeyLocalTarget, proc.Local.Final, localDefault(target, temp, paths.StagingJSON)))

	for _, key := range r.table.Keys() {
		if src, ok := r.sources[key]; ok {
			log.Debug(log.CatEnv, "Resolved key", "key", key, "source", src)
		}
	}
	log.Info(log.CatEnv, "Environment assembled", "keys", r.table.Len(), "master_resolved", report.MasterErr == nil)

	return r.table, report, nil
}

// pick applies the precedence env > store > default to one key.
func (r *Resolver) pick(key string, configured *string, def string) string {
	if v, ok := r.opts.Lookup(key); ok {
		r.sources[key] = SourceEnv
		return v
	}
	if configured != nil {
		r.sources[key] = SourceStore
	} else {
		r.sources[key] = SourceDefault
	}
	return store.StringOr(configured, def)
}

func (r *Resolver) pickPath(key string, configured *string, def string) string {
	return paths.EnsureTrailingSlash(r.pick(key, configured, def))
}

// localDefault is where the job sees a logical path on the shared mount:
// the path itself when it is local, its staging directory otherwise.
func localDefault(path, temp, staging string) string {
	if !paths.Parse(path).IsRemote() {
		return path
	}
	return paths.EnsureTrailingSlash(temp) + staging + paths.Separator
}

func (r *Resolver) resolveMaster() (string, error) {
	var assignments HostAssignments
	if r.opts.HostFile != "" {
		a, err := ReadHostFile(r.opts.HostFile)
		switch {
		case err == nil:
			assignments = a
		case errors.Is(err, os.ErrNotExist):
			log.Warn(log.CatMaster, "Host file not found", "path", r.opts.HostFile)
		default:
			// Assignments read before the failure still count.
			assignments = a
			log.ErrorErr(log.CatMaster, "Failed to read host file", err, "path", r.opts.HostFile)
		}
	}

	master, err := ResolveMaster(assignments)
	if err != nil {
		log.Error(log.CatMaster, "Cannot build spark master",
			"host", assignments.Host,
			"port", assignments.Port,
			"master", assignments.Master)
		return assignments.Master, err
	}

	log.Debug(log.CatMaster, "Resolved spark master", "master", master)
	return master, nil
}
