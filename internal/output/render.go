// Package output renders the resolved environment, object-store client
// settings, SSH keys and transfer scripts into files, and writes or diffs
// them against what is on disk.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/c360/c360cfg/internal/environment"
	"github.com/c360/c360cfg/internal/log"
	"github.com/c360/c360cfg/internal/store"
	"github.com/c360/c360cfg/internal/transfer"
)

// File names below the home directory.
const (
	ExportFileName   = ".c360cfg"
	S3ConfigFileName = ".s3cfg"
	SSHDirName       = ".ssh"
)

const (
	secretMode os.FileMode = 0o600
	sshDirMode os.FileMode = 0o700
	dirMode    os.FileMode = 0o750
)

// SingleQuotedKeys hold secrets that may contain shell-special characters,
// so the export file quotes them literally.
var SingleQuotedKeys = []string{"CB_PASSWORD", "ENCRYPTION_KEY"}

// RenderExport renders one export line per table entry, in table order.
func RenderExport(t *environment.Table) []byte {
	var b strings.Builder
	t.Each(func(key, value string) {
		quote := `"`
		if slices.Contains(SingleQuotedKeys, key) {
			quote = "'"
		}
		fmt.Fprintf(&b, "export %s=%s%s%s\n", key, quote, value, quote)
	})
	return []byte(b.String())
}

// RenderS3Config renders the s3cmd client configuration.
func RenderS3Config(t *environment.Table) []byte {
	endpoint := t.Value(environment.KeyS3Endpoint)
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	secret, ok := t.Get(environment.KeyS3SecretKey)
	if !ok {
		secret = "ignored"
	}

	lines := []string{
		"[default]",
		"host_base = " + endpoint,
		"host_bucket = " + endpoint,
		"access_key = " + t.Value(environment.KeyS3AccessKey),
		"secret_key = " + secret,
		"use_https = true",
		"signature_v2 = false",
		"enable_multipart = false",
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// File is one output artifact.
type File struct {
	Path    string
	Content []byte
	Mode    os.FileMode
	// Secret files are never printed, only reported as changed.
	Secret bool
}

// ExportFile is the sourceable environment file.
func ExportFile(home string, t *environment.Table) File {
	return File{Path: filepath.Join(home, ExportFileName), Content: RenderExport(t), Mode: secretMode, Secret: true}
}

// S3ConfigFile is the s3cmd configuration file.
func S3ConfigFile(home string, t *environment.Table) File {
	return File{Path: filepath.Join(home, S3ConfigFileName), Content: RenderS3Config(t), Mode: secretMode, Secret: true}
}

// ScriptFile places a transfer script in the home directory.
func ScriptFile(home string, s transfer.Script) File {
	return File{Path: filepath.Join(home, s.Name), Content: s.Bytes(), Mode: s.Mode}
}

// SSHKeyFiles materializes the configured private keys under ~/.ssh.
// Entries without a file name are skipped.
func SSHKeyFiles(home string, g store.General) []File {
	var files []File
	for _, name := range g.SSHKeyNames() {
		key := g.SSH[name]
		if key.Filename == "" {
			log.Warn(log.CatOutput, "Skipping ssh key without filename", "name", name)
			continue
		}
		files = append(files, File{
			Path:    filepath.Join(home, SSHDirName, filepath.Base(key.Filename)),
			Content: []byte(key.Key + "\n"),
			Mode:    secretMode,
			Secret:  true,
		})
	}
	return files
}
