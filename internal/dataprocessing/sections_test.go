package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/shared/testutil"
)

func TestLocateSections(t *testing.T) {
	rows := testutil.NewExportBuilder().Rows()

	s, err := LocateSections(rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"Median", "Net MFI", "Count"}, s.Names())
	require.Len(t, s.Blocks, 3)
	assert.Equal(t, s.Blocks[0].Offset, s.HeaderEnd)
	for _, b := range s.Blocks {
		assert.Equal(t, "DataType:", rows[b.Offset][0])
	}
	// marker, header, three samples, separator
	assert.Equal(t, 6, s.Blocks[1].Offset-s.Blocks[0].Offset)
}

func TestLocateSectionsErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{
			name: "no markers",
			rows: [][]string{{"Program", "xPONENT"}, {"Samples", "1", "Min Events", "50"}},
		},
		{
			name: "duplicate block",
			rows: [][]string{{"DataType:", "Median"}, {"DataType:", " Median "}},
		},
		{
			name: "unnamed block",
			rows: [][]string{{"DataType:", "Median"}, {"DataType:", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LocateSections(tt.rows)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrMalformedFormat))
		})
	}
}

func TestInferSampleCount(t *testing.T) {
	tests := []struct {
		name    string
		builder *testutil.ExportBuilder
		want    int
	}{
		{"three blocks", testutil.NewExportBuilder(), 3},
		{"one sample", testutil.NewExportBuilder().WithSamples(1), 1},
		{"many samples", testutil.NewExportBuilder().WithSamples(96), 96},
		{"single block", testutil.NewExportBuilder().WithBlocks("Median").WithSamples(4), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := tt.builder.Rows()
			s, err := LocateSections(rows)
			require.NoError(t, err)

			got, err := InferSampleCount(s, rows)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferSampleCountErrors(t *testing.T) {
	marker := func(name string) []string { return []string{"DataType:", name} }
	header := []string{"Location", "Sample", "Bead1"}
	data := []string{"1(1,A1)", "S1", "1"}
	sep := []string{""}

	tests := []struct {
		name     string
		sections Sections
		rows     [][]string
	}{
		{
			name: "uneven spacing",
			sections: Sections{Blocks: []Section{
				{Name: "Median", Offset: 0}, {Name: "Net MFI", Offset: 4}, {Name: "Count", Offset: 9},
			}},
			rows: make([][]string, 16),
		},
		{
			name:     "spacing leaves no rows",
			sections: Sections{Blocks: []Section{{Name: "Median", Offset: 0}, {Name: "Count", Offset: 3}}},
			rows:     [][]string{marker("Median"), header, sep, marker("Count"), header, sep},
		},
		{
			name:     "last block truncated",
			sections: Sections{Blocks: []Section{{Name: "Median", Offset: 0}, {Name: "Count", Offset: 5}}},
			rows:     [][]string{marker("Median"), header, data, data, sep, marker("Count"), header, data},
		},
		{
			name:     "single block without data",
			sections: Sections{Blocks: []Section{{Name: "Median", Offset: 0}}},
			rows:     [][]string{marker("Median"), header, sep, sep},
		},
		{
			name: "no blocks",
			rows: [][]string{header},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InferSampleCount(tt.sections, tt.rows)
			require.Error(t, err)
			assert.True(t,
				errors.Is(err, apperrors.ErrInconsistentSampleCount) || errors.Is(err, apperrors.ErrMalformedFormat),
				"unexpected error: %v", err)
		})
	}
}

func TestInferSampleCountUnevenBlock(t *testing.T) {
	rows := testutil.NewExportBuilder().
		WithExtraRow("Median", "4(1,D1)", "Extra", "1", "2", "3", "4").
		Rows()
	s, err := LocateSections(rows)
	require.NoError(t, err)

	_, err = InferSampleCount(s, rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInconsistentSampleCount))
}

func TestInferSampleCountShortFirstBlock(t *testing.T) {
	b := testutil.NewExportBuilder().WithSamples(6).WithBlocks("Median", "Count")
	require.Equal(t, "6(1,F1)", b.Locations()[5])

	rows := b.WithoutRow("Median", "6(1,F1)").Rows()
	s, err := LocateSections(rows)
	require.NoError(t, err)

	_, err = InferSampleCount(s, rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInconsistentSampleCount), "got %v", err)
	assert.Contains(t, err.Error(), `last block "Count" holds 6 rows, earlier blocks hold 5`)
}
