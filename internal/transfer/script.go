// Package transfer synthesizes the shell scripts that stage data between
// the object store and the shared processing filesystem. It only emits
// text; the scripts run later, in another process.
package transfer

import (
	"os"
	"strings"
)

// Interpreter is the first line of every generated script.
const Interpreter = "#!/bin/bash"

// ScriptMode lets only the owner read, write and execute a script.
const ScriptMode os.FileMode = 0o700

// Script names written to the home directory.
const (
	DownloadScriptName = "download_files.sh"
	UploadScriptName   = "upload_files.sh"
)

// Script is one generated shell script.
type Script struct {
	Name  string
	Lines []string
	Mode  os.FileMode
}

func newScript(name string) *Script {
	return &Script{Name: name, Lines: []string{Interpreter}, Mode: ScriptMode}
}

func (s *Script) add(lines ...string) {
	s.Lines = append(s.Lines, lines...)
}

// Bytes renders the script with a trailing newline.
func (s Script) Bytes() []byte {
	return []byte(strings.Join(s.Lines, "\n") + "\n")
}

// Scripts is the generated download/upload pair.
type Scripts struct {
	Download Script
	Upload   Script
}
