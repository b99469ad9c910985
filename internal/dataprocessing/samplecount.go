package dataprocessing

import (
	"fmt"

	apperrors "beadcsv/internal/errors"
)

// Every block is a marker row, a column header row, SampleCount data rows
// and one separator row.
const (
	blockPrefixRows = 2
	blockFrameRows  = blockPrefixRows + 1
)

// InferSampleCount derives the number of samples from the spacing of the
// block markers.
func InferSampleCount(sections Sections, rows [][]string) (int, error) {
	blocks := sections.Blocks
	if len(blocks) == 0 {
		return 0, apperrors.NewMalformedFormatError("no blocks to infer sample count from")
	}

	last := blocks[len(blocks)-1]

	if len(blocks) == 1 {
		count := bodyLength(rows, last.Offset+blockPrefixRows)
		if count <= 0 {
			return 0, apperrors.NewInconsistentSampleCountError(
				fmt.Sprintf("block %q has no data rows", last.Name))
		}
		return count, nil
	}

	diff := -1
	for i := 1; i < len(blocks); i++ {
		d := blocks[i].Offset - blocks[i-1].Offset
		if diff == -1 {
			diff = d
			continue
		}
		if d != diff {
			return 0, apperrors.NewInconsistentSampleCountError(
				fmt.Sprintf("block %q spans %d rows, earlier blocks span %d", blocks[i-1].Name, d, diff)).
				WithContext("block", blocks[i-1].Name)
		}
	}

	count := diff - blockFrameRows
	if count <= 0 {
		return 0, apperrors.NewInconsistentSampleCountError(
			fmt.Sprintf("block spacing of %d rows leaves no data rows", diff))
	}
	if body := bodyLength(rows, last.Offset+blockPrefixRows); body != count {
		return 0, apperrors.NewInconsistentSampleCountError(
			fmt.Sprintf("last block %q holds %d rows, earlier blocks hold %d", last.Name, body, count)).
			WithContext("block", last.Name)
	}
	return count, nil
}

// bodyLength counts the rows from start up to the next separator row or
// the end of rows.
func bodyLength(rows [][]string, start int) int {
	n := 0
	for i := start; i < len(rows) && !isEmptyRow(rows[i]); i++ {
		n++
	}
	return n
}
