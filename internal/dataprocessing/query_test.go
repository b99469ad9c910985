package dataprocessing

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/shared/testutil"
	"beadcsv/pkg/contracts/domain"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		loc       string
		wantIndex int
		wantWell  string
		wantOK    bool
	}{
		{"1(1,A1)", 1, "A1", true},
		{"12 (1,h12)", 12, "H12", true},
		{"7(B3)", 7, "B3", true},
		{" 3", 3, "", true},
		{"Location", 0, "", false},
		{"", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			idx, well, ok := ParseLocation(tt.loc)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantWell, well)
		})
	}
}

func TestSamples(t *testing.T) {
	doc, err := ParseBytes(testutil.NewExportBuilder().
		WithLocations("1(1,A1)", "2(1,B1)", "Blank").
		WithSampleName(1, "Patient 42").
		Bytes())
	require.NoError(t, err)

	samples := doc.Samples()
	assert.Equal(t, []domain.Sample{
		{Index: 1, Well: "A1", Name: "Sample1", Location: "1(1,A1)"},
		{Index: 2, Well: "B1", Name: "Patient 42", Location: "2(1,B1)"},
	}, samples, "rows without an order number are skipped")
	assert.Equal(t, []string{"Sample1", "Patient 42"}, doc.SampleNames())
}

func TestSampleName(t *testing.T) {
	doc, err := ParseBytes(testutil.NewExportBuilder().WithSampleName(2, "Control").Bytes())
	require.NoError(t, err)

	tests := []struct {
		name    string
		index   int
		well    string
		want    string
		wantErr error
	}{
		{name: "by index", index: 3, want: "Control"},
		{name: "by well", well: "b1", want: "Sample2"},
		{name: "index and well agree", index: 1, well: "A1", want: "Sample1"},
		{name: "index and well disagree", index: 1, well: "B1", wantErr: apperrors.ErrValidation},
		{name: "unknown index", index: 9, wantErr: apperrors.ErrNotFound},
		{name: "unknown well", well: "H12", wantErr: apperrors.ErrNotFound},
		{name: "nothing given", wantErr: apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.SampleName(tt.index, tt.well)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestData(t *testing.T) {
	b := testutil.NewExportBuilder()
	doc, err := ParseBytes(b.Bytes())
	require.NoError(t, err)

	t.Run("unfiltered", func(t *testing.T) {
		rows := slices.Collect(doc.Data(DataFilter{}))
		require.Len(t, rows, 9)
		assert.Equal(t, "Median", rows[0].Block)
		assert.Equal(t, "1(1,A1)", rows[0].Location)
		assert.Equal(t, "Count", rows[8].Block)
		assert.Equal(t, []string{"Bead1", "Bead2", "Bead3", "Total Events"}, rows[0].Columns)
	})

	t.Run("typed values", func(t *testing.T) {
		rows := slices.Collect(doc.Data(DataFilter{Blocks: []string{"Count"}, Samples: []int{2}}))
		require.Len(t, rows, 1)
		r := rows[0]
		assert.Equal(t, 2, r.Index)
		assert.Equal(t, "B1", r.Well)
		assert.Equal(t, "Sample2", r.Sample)
		assert.Equal(t, []any{int64(60), int64(61), int64(62), int64(501)}, r.Values)

		rows = slices.Collect(doc.Data(DataFilter{Blocks: []string{"Median"}, Samples: []int{1}}))
		require.Len(t, rows, 1)
		assert.Equal(t, 2000.5, rows[0].Values[0])
	})

	t.Run("request order", func(t *testing.T) {
		rows := slices.Collect(doc.Data(DataFilter{Blocks: []string{"Count", "Median"}, Samples: []int{3, 1}}))
		require.Len(t, rows, 4)
		var got []string
		for _, r := range rows {
			got = append(got, r.Block+"/"+r.Location)
		}
		assert.Equal(t, []string{"Count/3(1,C1)", "Count/1(1,A1)", "Median/3(1,C1)", "Median/1(1,A1)"}, got)
	})

	t.Run("unknown block or sample yields nothing", func(t *testing.T) {
		assert.Empty(t, slices.Collect(doc.Data(DataFilter{Blocks: []string{"Trimmed Mean"}})))
		assert.Empty(t, slices.Collect(doc.Data(DataFilter{Samples: []int{1, 42}})))
	})

	t.Run("early stop", func(t *testing.T) {
		n := 0
		for range doc.Data(DataFilter{}) {
			n++
			if n == 2 {
				break
			}
		}
		assert.Equal(t, 2, n)
	})
}
