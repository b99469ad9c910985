package dataprocessing

import (
	"fmt"
	"log/slog"
	"strings"

	apperrors "beadcsv/internal/errors"
	"beadcsv/pkg/contracts/domain"
)

// UpdateOptions controls Update and UpdateExcluding.
type UpdateOptions struct {
	// Force skips the compatibility check. Target blocks the source lacks
	// are then left as they are.
	Force bool
}

// Update replaces, in every block, the target row at each pair's Target
// with the source row at its Source. The replaced row keeps the target's
// location key. Either every pair applies or d is left untouched.
func (d *Document) Update(source *Document, pairs []domain.LocationPair, opts UpdateOptions) error {
	if !opts.Force {
		if err := CheckCompatibility(d, source).Err(); err != nil {
			return err
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	scratch := make([]*Block, len(d.blocks))
	for i, b := range d.blocks {
		src := source.block(b.Name)
		if src == nil {
			scratch[i] = b
			continue
		}

		table := b.Table.Clone()
		for _, p := range pairs {
			row, ok := src.Table.Row(p.Source)
			if !ok {
				return apperrors.NewNotFoundError(fmt.Sprintf("source location %q", p.Source), ErrLocationNotFound).
					WithContext("block", b.Name).
					WithContext("location", p.Source)
			}
			replacement := Row{
				Location: p.Target,
				Sample:   row.Sample,
				Cells:    remapCells(row.Cells, src.Table, table),
			}
			if err := table.Replace(p.Target, replacement); err != nil {
				return withBlock(err, b.Name)
			}
		}
		scratch[i] = &Block{Name: b.Name, Offset: b.Offset, Table: table}
	}

	d.blocks = scratch
	d.refingerprint()
	d.log().Info("document rows updated",
		slog.Int("pairs", len(pairs)),
		slog.Bool("forced", opts.Force))
	return nil
}

// UpdateExcluding derives pairs by joining both documents on well and
// applies them. Wells in excludedWells (case-insensitive) are skipped. When
// the source has several rows in one well the first one wins. The applied
// pairs are returned.
func (d *Document) UpdateExcluding(source *Document, excludedWells []string, opts UpdateOptions) ([]domain.LocationPair, error) {
	pairs := MatchWells(d, source, excludedWells)
	if err := d.Update(source, pairs, opts); err != nil {
		return nil, err
	}
	return pairs, nil
}

// MatchWells pairs target rows with the source row in the same well.
func MatchWells(target, source *Document, excludedWells []string) []domain.LocationPair {
	excluded := make(map[string]bool, len(excludedWells))
	for _, w := range excludedWells {
		excluded[strings.ToUpper(strings.TrimSpace(w))] = true
	}

	byWell := make(map[string]string)
	for _, s := range source.Samples() {
		if s.Well == "" {
			continue
		}
		if _, seen := byWell[s.Well]; !seen {
			byWell[s.Well] = s.Location
		}
	}

	var pairs []domain.LocationPair
	for _, s := range target.Samples() {
		if s.Well == "" || excluded[s.Well] {
			continue
		}
		if loc, ok := byWell[s.Well]; ok {
			pairs = append(pairs, domain.LocationPair{Source: loc, Target: s.Location})
		}
	}
	return pairs
}
