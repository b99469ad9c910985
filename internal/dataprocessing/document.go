package dataprocessing

import (
	"encoding/hex"
	"log/slog"
	"strconv"

	"github.com/zeebo/blake3"
)

// Fingerprint is the BLAKE3 digest of the bytes a document was parsed
// from. Merge and Update replace it with a digest of the mutated tables.
type Fingerprint [32]byte

// FingerprintOf hashes raw export bytes.
func FingerprintOf(data []byte) Fingerprint {
	return blake3.Sum256(data)
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether the document was not parsed from bytes.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Document is one parsed export: header, sample count and the ordered
// blocks sharing one location space. A Document is not safe for concurrent
// mutation; Merge and Update are its only mutators.
type Document struct {
	path        string
	header      *Header
	sampleCount int
	blocks      []*Block
	fingerprint Fingerprint
	logger      *slog.Logger
}

// Path returns the file the document was loaded from, if any.
func (d *Document) Path() string {
	return d.path
}

func (d *Document) Header() *Header {
	return d.header
}

// SampleCount returns the number of rows in every block.
func (d *Document) SampleCount() int {
	return d.sampleCount
}

func (d *Document) Fingerprint() Fingerprint {
	return d.fingerprint
}

// refingerprint hashes the sample count and every block's columns and
// rows, unit and record separated.
func (d *Document) refingerprint() {
	h := blake3.New()
	record := func(fields []string) {
		for _, f := range fields {
			h.WriteString(f)
			h.WriteString("\x1f")
		}
		h.WriteString("\x1e")
	}

	record([]string{strconv.Itoa(d.sampleCount)})
	for _, b := range d.blocks {
		record([]string{"DataType:", b.Name})
		record(b.Table.columns)
		for _, r := range b.Table.rows {
			record(r.Fields())
		}
	}
	copy(d.fingerprint[:], h.Sum(nil))
}

// Blocks returns copies of the blocks in source order.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = Block{Name: b.Name, Offset: b.Offset, Table: b.Table.Clone()}
	}
	return out
}

// Block returns a copy of the named block.
func (d *Document) Block(name string) (Block, bool) {
	b := d.block(name)
	if b == nil {
		return Block{}, false
	}
	return Block{Name: b.Name, Offset: b.Offset, Table: b.Table.Clone()}, true
}

func (d *Document) block(name string) *Block {
	for _, b := range d.blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Clone returns a deep copy sharing only the immutable header.
func (d *Document) Clone() *Document {
	out := *d
	out.blocks = make([]*Block, len(d.blocks))
	for i, b := range d.blocks {
		out.blocks[i] = &Block{Name: b.Name, Offset: b.Offset, Table: b.Table.Clone()}
	}
	return &out
}

// Equal compares sample count, recognized header fields and table contents.
func (d *Document) Equal(o *Document) bool {
	if d.sampleCount != o.sampleCount || len(d.blocks) != len(o.blocks) {
		return false
	}
	for k, v := range d.header.Map() {
		if o.header.Map()[k] != v {
			return false
		}
	}
	for i, b := range d.blocks {
		if b.Name != o.blocks[i].Name || !b.Table.Equal(o.blocks[i].Table) {
			return false
		}
	}
	return true
}
