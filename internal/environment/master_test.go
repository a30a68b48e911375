package environment

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHostFile(t *testing.T) {
	src := `
# spark settings
export JAVA_HOME=/usr/lib/jvm
SPARK_MASTER_HOST=old-host
export SPARK_MASTER_HOST="master-1"
SPARK_MASTER_PORT=7077
not an assignment
SPARK_MASTER='spark://$SPARK_MASTER_HOST:$SPARK_MASTER_PORT'
`
	a, err := ParseHostFile(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "master-1", a.Host, "later assignment wins")
	require.Equal(t, "7077", a.Port)
	require.Equal(t, "spark://$SPARK_MASTER_HOST:$SPARK_MASTER_PORT", a.Master)
}

func TestParseHostFile_ValueMayContainEquals(t *testing.T) {
	a, err := ParseHostFile(strings.NewReader("SPARK_MASTER=spark://h:1?x=y\n"))
	require.NoError(t, err)
	require.Equal(t, "spark://h:1?x=y", a.Master)
}

func TestParseHostFile_LongLine(t *testing.T) {
	src := "SPARK_MASTER=spark://m:7077\nalias big='" + strings.Repeat("x", 70*1024) + "'\nSPARK_MASTER_PORT=7077"
	a, err := ParseHostFile(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "spark://m:7077", a.Master)
	require.Equal(t, "7077", a.Port, "last line without newline")
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestParseHostFile_ReadErrorKeepsParsedAssignments(t *testing.T) {
	readErr := errors.New("device gone")
	a, err := ParseHostFile(&failingReader{
		data: "SPARK_MASTER_HOST=h\nSPARK_MASTER_PORT=7077\n",
		err:  readErr,
	})
	require.ErrorIs(t, err, readErr)
	require.Equal(t, HostAssignments{Host: "h", Port: "7077"}, a)
}

func TestResolveMaster(t *testing.T) {
	tests := []struct {
		name string
		in   HostAssignments
		want string
	}{
		{
			name: "host and port without master",
			in:   HostAssignments{Host: "h", Port: "p"},
			want: "spark://h:p",
		},
		{
			name: "placeholders substituted",
			in:   HostAssignments{Host: "h", Port: "p", Master: "spark://$SPARK_MASTER_HOST:$SPARK_MASTER_PORT"},
			want: "spark://h:p",
		},
		{
			name: "braced placeholders substituted",
			in:   HostAssignments{Host: "h", Port: "p", Master: "spark://${SPARK_MASTER_HOST}:${SPARK_MASTER_PORT}"},
			want: "spark://h:p",
		},
		{
			name: "literal master used verbatim",
			in:   HostAssignments{Host: "ignored", Port: "1", Master: "spark://fixed:7077"},
			want: "spark://fixed:7077",
		},
		{
			name: "unknown placeholder falls back to host and port",
			in:   HostAssignments{Host: "h", Port: "p", Master: "spark://$OTHER:7077"},
			want: "spark://h:p",
		},
		{
			name: "longer variable sharing the host prefix is not substituted",
			in:   HostAssignments{Host: "h", Port: "7077", Master: "spark://$SPARK_MASTER_HOSTNAME:$SPARK_MASTER_PORT"},
			want: "spark://h:7077",
		},
		{
			name: "braced longer variable is not substituted",
			in:   HostAssignments{Host: "h", Port: "7077", Master: "spark://${SPARK_MASTER_HOSTNAME}:${SPARK_MASTER_PORT}"},
			want: "spark://h:7077",
		},
		{
			name: "placeholder followed by a path",
			in:   HostAssignments{Host: "h", Port: "7077", Master: "spark://$SPARK_MASTER_HOST:$SPARK_MASTER_PORT/x"},
			want: "spark://h:7077/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveMaster(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMaster_Unresolvable(t *testing.T) {
	cases := []HostAssignments{
		{},
		{Host: "h"},
		{Port: "p"},
		{Port: "p", Master: "spark://$SPARK_MASTER_HOST:$SPARK_MASTER_PORT"},
	}

	for _, in := range cases {
		_, err := ResolveMaster(in)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrUnresolvableMaster)

		var masterErr *MasterError
		require.True(t, errors.As(err, &masterErr))
		require.Equal(t, in.Host, masterErr.Host)
		require.Equal(t, in.Port, masterErr.Port)
		require.Equal(t, in.Master, masterErr.Master)
	}
}

func TestReadHostFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bashrc")
	require.NoError(t, os.WriteFile(path, []byte("SPARK_MASTER_HOST=h\nSPARK_MASTER_PORT=7077\n"), 0o600))

	a, err := ReadHostFile(path)
	require.NoError(t, err)
	require.Equal(t, HostAssignments{Host: "h", Port: "7077"}, a)

	_, err = ReadHostFile(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
