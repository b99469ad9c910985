package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"beadcsv/internal/dataprocessing"
	"beadcsv/internal/shared/testutil"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()
	file := testutil.NewExportBuilder().WriteFile(t, dir, "plate.csv")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"frobnicate"}, 2},
		{"missing output", []string{"export", file}, 2},
		{"too few arguments", []string{"merge", file, "-o", "out.csv"}, 2},
		{"unknown flag", []string{"inspect", "--nope", file}, 2},
		{"bad pair", []string{"update", file, file, "-o", filepath.Join(dir, "o.csv"), "--pair", "1(1,A1)"}, 2},
		{"bad format", []string{"export", file, "-o", filepath.Join(dir, "o.txt"), "--format", "pdf"}, 2},
		{"missing file", []string{"inspect", filepath.Join(dir, "absent.csv")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestHelpAndVersion(t *testing.T) {
	_, stderr, err := runCLI(t, "help")
	require.NoError(t, err)
	assert.Contains(t, stderr, "collaborators")
	assert.Contains(t, stderr, "serve")

	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "beadcsv dev\n", stdout)

	_, stderr, err = runCLI(t, "inspect", "--help")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pflag.ErrHelp))
	assert.Contains(t, stderr, "--stats-out")
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	file := testutil.NewExportBuilder().WithDeclaredSamples("4").WriteFile(t, dir, "plate.csv")

	t.Run("text", func(t *testing.T) {
		stdout, _, err := runCLI(t, "inspect", file)
		require.NoError(t, err)
		assert.Contains(t, stdout, "1234 LABScreen Single Antigen")
		assert.Contains(t, stdout, "3 (header declares 4)")
		assert.Contains(t, stdout, "Median, Net MFI, Count")
		assert.Contains(t, stdout, "Bead1, Bead2, Bead3")
	})

	t.Run("json with stats", func(t *testing.T) {
		statsOut := filepath.Join(dir, "stats.json")
		stdout, _, err := runCLI(t, "inspect", "--json", "--stats", "-s", statsOut, file)
		require.NoError(t, err)

		var report struct {
			SampleCount     int      `json:"sample_count"`
			DeclaredSamples *int     `json:"declared_samples"`
			MinEvents       int      `json:"min_events"`
			Blocks          []string `json:"blocks"`
			Stats           []any    `json:"stats"`
			Metadata        map[string]string
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, 3, report.SampleCount)
		require.NotNil(t, report.DeclaredSamples)
		assert.Equal(t, 4, *report.DeclaredSamples)
		assert.Equal(t, 100, report.MinEvents)
		assert.Equal(t, []string{"Median", "Net MFI", "Count"}, report.Blocks)
		assert.Len(t, report.Stats, 9)
		assert.Equal(t, "jdoe", report.Metadata["Operator"])

		data, err := os.ReadFile(statsOut)
		require.NoError(t, err)
		var written struct {
			Beads  []map[string]any `json:"beads"`
			Count  int              `json:"count"`
			Format string           `json:"format"`
		}
		require.NoError(t, json.Unmarshal(data, &written))
		assert.Len(t, written.Beads, 9)
		assert.Equal(t, 9, written.Count)
		assert.Equal(t, "bead_summary_v1", written.Format)
	})
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	target := testutil.NewExportBuilder().WriteFile(t, dir, "a.csv")
	source := testutil.NewExportBuilder().WriteFile(t, dir, "b.csv")
	third := testutil.NewExportBuilder().WithSamples(2).WriteFile(t, dir, "c.csv")

	out := filepath.Join(dir, "merged.csv")
	stdout, _, err := runCLI(t, "merge", target, source, third, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "merged 3 files, 8 samples")

	doc, err := dataprocessing.ParseFile(out)
	require.NoError(t, err)
	assert.Equal(t, 8, doc.SampleCount())
	assert.Equal(t, "8(1,B1)", doc.Samples()[7].Location)

	t.Run("unshifted duplicates fail", func(t *testing.T) {
		_, _, err := runCLI(t, "merge", "--shift-locations=false", target, source, "-o", filepath.Join(dir, "dup.csv"))
		require.Error(t, err)
		assert.Equal(t, 1, exitCode(err))
		assert.NoFileExists(t, filepath.Join(dir, "dup.csv"))
	})

	t.Run("incompatible needs force", func(t *testing.T) {
		other := testutil.NewExportBuilder().WithBeads("Bead1", "Bead9").WriteFile(t, dir, "other.csv")
		_, _, err := runCLI(t, "merge", target, other, "-o", filepath.Join(dir, "x.csv"))
		require.Error(t, err)

		_, _, err = runCLI(t, "merge", "--force", target, other, "-o", filepath.Join(dir, "x.csv"))
		require.NoError(t, err)
	})
}

func TestUpdate(t *testing.T) {
	dir := t.TempDir()
	target := testutil.NewExportBuilder().WriteFile(t, dir, "target.csv")
	source := testutil.NewExportBuilder().
		WithValue("Median", "1(1,A1)", "Bead1", "9876").
		WithValue("Median", "2(1,B1)", "Bead1", "5432").
		WriteFile(t, dir, "source.csv")

	t.Run("explicit pair", func(t *testing.T) {
		out := filepath.Join(dir, "paired.csv")
		stdout, _, err := runCLI(t, "update", target, source, "-o", out, "--pair", "1(1,A1)=3(1,C1)")
		require.NoError(t, err)
		assert.Contains(t, stdout, "updated 1 rows")

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"9876"`)
		assert.NotContains(t, string(data), `"5432"`)
	})

	t.Run("by well", func(t *testing.T) {
		out := filepath.Join(dir, "wells.csv")
		stdout, _, err := runCLI(t, "update", target, source, "-o", out, "--exclude-well", "B1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "updated 2 rows")

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"9876"`)
		assert.NotContains(t, string(data), `"5432"`)
	})

	t.Run("unknown location", func(t *testing.T) {
		out := filepath.Join(dir, "none.csv")
		_, _, err := runCLI(t, "update", target, source, "-o", out, "--pair", "9(1,H1)=1(1,A1)")
		require.Error(t, err)
		assert.NoFileExists(t, out)
	})
}

func TestCombine(t *testing.T) {
	in := t.TempDir()
	testutil.NewExportBuilder().WriteFile(t, in, "plate1.csv")
	testutil.NewExportBuilder().WithSamples(2).WriteFile(t, in, "plate2.csv")
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0644))

	out := filepath.Join(t.TempDir(), "combined.csv.zst")
	stdout, _, err := runCLI(t, "combine", in, "-o", out, "--parallel", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "combined 2 files, 5 samples")

	doc, err := dataprocessing.ParseFile(out)
	require.NoError(t, err)
	assert.Equal(t, 5, doc.SampleCount())

	stdout, _, err = runCLI(t, "combine", in, "-o", out, "--glob", "plate2*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "combined 1 files, 2 samples")

	_, _, err = runCLI(t, "combine", t.TempDir(), "-o", out)
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	file := testutil.NewExportBuilder().WriteFile(t, dir, "plate.csv")

	t.Run("workbook by extension", func(t *testing.T) {
		out := filepath.Join(dir, "plate.xlsx")
		_, _, err := runCLI(t, "export", file, "-o", out)
		require.NoError(t, err)

		f, err := excelize.OpenFile(out)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{"Header", "Median", "Net MFI", "Count"}, f.GetSheetList())
	})

	t.Run("long filtered", func(t *testing.T) {
		out := filepath.Join(dir, "long.csv")
		stdout, _, err := runCLI(t, "export", file, "-o", out, "--format", "long",
			"--block", "Net MFI", "--sample", "1,2")
		require.NoError(t, err)
		assert.Contains(t, stdout, "6 records")

		f, err := os.Open(out)
		require.NoError(t, err)
		defer f.Close()
		records, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 7)
		assert.Equal(t, "Net MFI", records[1][0])
	})

	t.Run("csv round trip", func(t *testing.T) {
		out := filepath.Join(dir, "copy.csv")
		_, _, err := runCLI(t, "export", file, "-o", out, "--format", "csv")
		require.NoError(t, err)

		original, err := dataprocessing.ParseFile(file)
		require.NoError(t, err)
		copied, err := dataprocessing.ParseFile(out)
		require.NoError(t, err)
		assert.Equal(t, original.BlockNames(), copied.BlockNames())
		assert.Equal(t, original.Samples(), copied.Samples())
	})
}

func TestCollaborators(t *testing.T) {
	dir := t.TempDir()
	lab1 := filepath.Join(dir, "lab1.csv")
	lab2 := filepath.Join(dir, "lab2.csv")
	require.NoError(t, os.WriteFile(lab1, []byte("Allele,Lab1\nA*02:01,3\nB*07:02,2\n"), 0644))
	require.NoError(t, os.WriteFile(lab2, []byte("Allele,Lab2\nA*01:01,4\nB*07:02,5\n"), 0644))

	out := filepath.Join(dir, "joined.csv")
	stdout, _, err := runCLI(t, "collaborators", lab1, lab2, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "joined 2 tables, 3 alleles")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)

	_, _, err = runCLI(t, "collaborators", filepath.Join(dir, "absent.csv"), "-o", out)
	require.Error(t, err)
}
