// Package dataprocessing reads bead-array instrument exports into a
// queryable Document and combines documents.
//
// # Architecture
//
// Parsing runs in two passes that never interleave:
//
//	1. Structure: Tokenize → LocateSections → ParseHeader → InferSampleCount
//	2. Content: BuildBlocks decodes every block into a keyed Table
//
// The Document then answers queries (BlockNames, BeadNames, Samples, Data)
// and is mutated only by Merge and Update.
//
// # Usage
//
//	doc, err := dataprocessing.ParseFile("plate1.csv")
//	if err != nil {
//	    return err
//	}
//	for row := range doc.Data(dataprocessing.DataFilter{Blocks: []string{"Median"}}) {
//	    fmt.Println(row.Location, row.Values)
//	}
//
// Combining two plates:
//
//	err = doc.Merge(other, dataprocessing.MergeOptions{ShiftLocations: true})
//
// # Error Handling
//
// Every failure is an *errors.AppError whose type says what went wrong
// (DECODE, MALFORMED_FORMAT, INCONSISTENT_SAMPLE_COUNT, TABLE_SHAPE,
// INCOMPATIBLE_SCHEMA, NOT_FOUND) with path, line, block or location in its
// context. A failed Merge or Update leaves the target unchanged.
package dataprocessing
