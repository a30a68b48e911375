package environment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Host file keys describing the cluster master.
const (
	MasterHostKey = "SPARK_MASTER_HOST"
	MasterPortKey = "SPARK_MASTER_PORT"
	MasterKey     = "SPARK_MASTER"

	masterScheme = "spark"
)

// ErrUnresolvableMaster means the host file yields no usable master address.
var ErrUnresolvableMaster = errors.New("cannot build spark master")

// MasterError carries the raw host file values behind an unresolvable
// master address.
type MasterError struct {
	Host   string
	Port   string
	Master string
}

func (e *MasterError) Error() string {
	return fmt.Sprintf("%v (host=%q port=%q master=%q)", ErrUnresolvableMaster, e.Host, e.Port, e.Master)
}

func (e *MasterError) Unwrap() error {
	return ErrUnresolvableMaster
}

// HostAssignments are the master-related assignments of a host startup
// file. Empty means unset.
type HostAssignments struct {
	Host   string
	Port   string
	Master string
}

// ParseHostFile reads KEY=VALUE lines. Comments, blank lines and unrelated
// keys are skipped, an "export " prefix and surrounding quotes are
// stripped, and a later assignment of the same key wins. Lines have no
// length limit. On a read error the assignments seen so far are returned
// with the error.
func ParseHostFile(r io.Reader) (HostAssignments, error) {
	var a HostAssignments

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			a.apply(line)
		}
		if errors.Is(err, io.EOF) {
			return a, nil
		}
		if err != nil {
			return a, fmt.Errorf("reading host file: %w", err)
		}
	}
}

func (a *HostAssignments) apply(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	value = unquote(strings.TrimSpace(value))

	switch strings.TrimSpace(key) {
	case MasterHostKey:
		a.Host = value
	case MasterPortKey:
		a.Port = value
	case MasterKey:
		a.Master = value
	}
}

// ReadHostFile parses the host file at path.
func ReadHostFile(path string) (HostAssignments, error) {
	f, err := os.Open(path) //nolint:gosec // G304: host file path comes from settings
	if err != nil {
		return HostAssignments{}, err
	}
	defer func() { _ = f.Close() }()

	return ParseHostFile(f)
}

// ResolveMaster derives the cluster master address:
//
//  1. a MASTER without placeholders is used verbatim;
//  2. HOST/PORT placeholders in MASTER are substituted when the values exist;
//  3. otherwise HOST and PORT build spark://HOST:PORT;
//  4. otherwise a *MasterError is returned.
func ResolveMaster(a HostAssignments) (string, error) {
	if a.Master != "" {
		if !strings.Contains(a.Master, "$") {
			return a.Master, nil
		}
		if master, ok := substitutePlaceholders(a); ok {
			return master, nil
		}
	}

	if a.Host != "" && a.Port != "" {
		return fmt.Sprintf("%s://%s:%s", masterScheme, a.Host, a.Port), nil
	}

	return "", &MasterError{Host: a.Host, Port: a.Port, Master: a.Master}
}

// placeholder matches $NAME and ${NAME}. Names are matched whole, so
// $SPARK_MASTER_HOSTNAME is never read as $SPARK_MASTER_HOST.
var placeholder = regexp.MustCompile(`\$(?:\{(\w+)\}|(\w+))`)

func substitutePlaceholders(a HostAssignments) (string, bool) {
	values := map[string]string{
		MasterHostKey: a.Host,
		MasterPortKey: a.Port,
	}

	resolved := true
	master := placeholder.ReplaceAllStringFunc(a.Master, func(ref string) string {
		m := placeholder.FindStringSubmatch(ref)
		name := m[1] + m[2]
		if v := values[name]; v != "" {
			return v
		}
		resolved = false
		return ref
	})
	if !resolved || strings.Contains(master, "$") {
		return "", false
	}
	return master, true
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
