package environment

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/c360/c360cfg/internal/log"
)

func fullPrerequisites() map[string]string {
	return map[string]string{
		"CB_HOST":          "cb.example.com",
		"CB_USER":          "admin",
		"CB_PASSWORD":      "s3cr3t",
		"CB_BUCKET":        "c360",
		"C360_ENVIRONMENT": "prod",
		"PROCESS_DATE":     "2026-10-18",
		"ENCRYPTION_KEY":   "k3y",
	}
}

func TestCheckPrerequisites_AllPresent(t *testing.T) {
	var buf bytes.Buffer
	defer log.InitWriter(&buf, log.LevelDebug)()

	table := NewTable()
	missing := CheckPrerequisites(MapLookup(fullPrerequisites()), Prerequisites, table)

	require.Equal(t, 0, missing)
	require.Equal(t, Prerequisites, table.Keys())
	require.Equal(t, "cb.example.com", table.Value("CB_HOST"))
	require.NotContains(t, buf.String(), "Missing environment variable")
}

func TestCheckPrerequisites_EmptyCountsAsMissing(t *testing.T) {
	var buf bytes.Buffer
	defer log.InitWriter(&buf, log.LevelDebug)()

	vars := fullPrerequisites()
	vars["PROCESS_DATE"] = ""

	table := NewTable()
	missing := CheckPrerequisites(MapLookup(vars), Prerequisites, table)

	require.Equal(t, 1, missing)
	_, ok := table.Get("PROCESS_DATE")
	require.False(t, ok)
	require.Contains(t, buf.String(), "Missing environment variable name=PROCESS_DATE")
}

func TestCheckPrerequisites_AccumulatesWithoutFailingFast(t *testing.T) {
	var buf bytes.Buffer
	defer log.InitWriter(&buf, log.LevelDebug)()

	table := NewTable()
	missing := CheckPrerequisites(MapLookup(map[string]string{"CB_BUCKET": "c360"}), Prerequisites, table)

	require.Equal(t, len(Prerequisites)-1, missing)
	require.Equal(t, []string{"CB_BUCKET"}, table.Keys())
}

// Any unset subset is counted exactly and every missing name is logged once.
func TestCheckPrerequisites_MissingSubsetProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		unset := rapid.SliceOfDistinct(rapid.SampledFrom(Prerequisites), func(s string) string { return s }).
			Draw(rt, "unset")

		vars := fullPrerequisites()
		for _, name := range unset {
			delete(vars, name)
		}

		var buf bytes.Buffer
		restore := log.InitWriter(&buf, log.LevelDebug)
		missing := CheckPrerequisites(MapLookup(vars), Prerequisites, NewTable())
		restore()

		require.Equal(rt, len(unset), missing)
		out := buf.String()
		for _, name := range unset {
			require.Equal(rt, 1, strings.Count(out, "name="+name+"\n"), "missing %s logged once", name)
		}
		require.Equal(rt, len(unset), strings.Count(out, "Missing environment variable"))
	})
}
