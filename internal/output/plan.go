package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/c360/c360cfg/internal/log"
)

// Plan is the ordered set of files a run produces.
type Plan struct {
	Files []File
}

// Add appends files to the plan.
func (p *Plan) Add(files ...File) {
	p.Files = append(p.Files, files...)
}

// Write writes every file in order, stopping at the first failure.
func (p Plan) Write() error {
	for _, f := range p.Files {
		if err := ensureDir(filepath.Dir(f.Path)); err != nil {
			log.ErrorErr(log.CatOutput, "Failed to create directory", err, "path", f.Path)
			return err
		}
		if err := writeFile(f.Path, f.Content, f.Mode); err != nil {
			log.ErrorErr(log.CatOutput, "Failed to write file", err, "path", f.Path)
			return err
		}
		log.Info(log.CatOutput, "Wrote file", "path", f.Path, "mode", fmt.Sprintf("%#o", f.Mode))
	}
	return nil
}

// Diff renders a line diff of every file against its current content.
// Secret files only report whether they would change.
func (p Plan) Diff() (string, error) {
	var b strings.Builder
	for _, f := range p.Files {
		current, err := os.ReadFile(f.Path) //nolint:gosec // G304: plan paths are built from the home directory
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("reading %s: %w", f.Path, err)
		}

		switch {
		case bytes.Equal(current, f.Content):
			fmt.Fprintf(&b, "= %s (unchanged)\n", f.Path)
		case f.Secret:
			fmt.Fprintf(&b, "~ %s (secret, content hidden)\n", f.Path)
		default:
			fmt.Fprintf(&b, "--- %s\n+++ %s\n", f.Path, f.Path)
			b.WriteString(Diff(string(current), string(f.Content)))
		}
	}
	return b.String(), nil
}

// Diff returns a line-oriented diff of oldText and newText, one prefixed line per
// input line: "-" removed, "+" added, " " kept.
func Diff(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	a, c, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, c, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

func ensureDir(dir string) error {
	mode := dirMode
	if filepath.Base(dir) == SSHDirName {
		mode = sshDirMode
	}
	if err := os.MkdirAll(dir, mode); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// writeFile writes data as a whole and applies mode even when the file
// already existed. The handle is closed on every path.
func writeFile(path string, data []byte, mode os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) //nolint:gosec // G304: plan paths are built from the home directory
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Chmod(mode); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	return nil
}
