package tensor

import "fmt"

// PadMode selects where Flatten inserts zero padding rows.
type PadMode int

const (
	// PadEdges puts pad rows at the start and the end of the whole buffer.
	PadEdges PadMode = iota

	// PadSequences puts pad rows before every non-empty sequence and once
	// after the last one, so windows over the flat buffer never span two
	// sequences.
	PadSequences
)

// String returns the mode name.
func (m PadMode) String() string {
	switch m {
	case PadEdges:
		return "edges"
	case PadSequences:
		return "sequences"
	default:
		return fmt.Sprintf("PadMode(%d)", int(m))
	}
}

// Lengths records how a batch of sequences was flattened.
//
// Sizes is the length index: one entry per sequence, in batch order. Pad and
// Mode describe the zero rows that were inserted and must be skipped again on
// the way back.
type Lengths struct {
	Sizes []int
	Pad   int
	Mode  PadMode
}

// Total returns the number of real (non-pad) rows.
func (l Lengths) Total() int {
	n := 0
	for _, s := range l.Sizes {
		n += s
	}
	return n
}

// Rows returns the number of rows of the flat buffer, pad rows included.
func (l Lengths) Rows() int {
	n := 0
	for _, s := range l.segments() {
		n += s
	}
	return n
}

// segments returns the row counts of every piece of the flat buffer in order,
// pad pieces included.
func (l Lengths) segments() []int {
	segs, _ := l.layout()
	return segs
}

// layout returns the piece row counts and, for each sequence, the index of
// the piece holding it.
func (l Lengths) layout() (segs []int, seqAt []int) {
	if l.Pad <= 0 {
		segs = append(segs, l.Sizes...)
		for i := range l.Sizes {
			seqAt = append(seqAt, i)
		}
		return segs, seqAt
	}

	switch l.Mode {
	case PadSequences:
		for _, s := range l.Sizes {
			if s != 0 {
				segs = append(segs, l.Pad)
			}
			seqAt = append(seqAt, len(segs))
			segs = append(segs, s)
		}
		segs = append(segs, l.Pad)
	default:
		segs = append(segs, l.Pad)
		for _, s := range l.Sizes {
			seqAt = append(seqAt, len(segs))
			segs = append(segs, s)
		}
		segs = append(segs, l.Pad)
	}
	return segs, seqAt
}

// Clone returns a deep copy.
func (l Lengths) Clone() Lengths {
	sizes := make([]int, len(l.Sizes))
	copy(sizes, l.Sizes)
	return Lengths{Sizes: sizes, Pad: l.Pad, Mode: l.Mode}
}

// Ragged is a flattened batch: one contiguous array plus its length record.
type Ragged struct {
	Data    *Array
	Lengths Lengths
}

// Flatten concatenates seqs along the leading axis, adding pad zero rows at
// the start and end of the result when pad > 0.
//
// Every sequence must share the same row shape. Empty sequences are allowed
// and simply contribute nothing.
func Flatten(e Engine, seqs []*Array, pad int) (*Array, Lengths, error) {
	return FlattenPadded(e, seqs, pad, PadEdges)
}

// FlattenPadded is Flatten with an explicit padding layout.
func FlattenPadded(e Engine, seqs []*Array, pad int, mode PadMode) (*Array, Lengths, error) {
	if pad < 0 {
		return nil, Lengths{}, fmt.Errorf("flatten: negative pad %d", pad)
	}

	lengths := Lengths{Sizes: make([]int, len(seqs)), Pad: pad, Mode: mode}
	inner := Shape{0}
	for i, seq := range seqs {
		if len(seq.Shape()) == 0 {
			return nil, Lengths{}, Mismatch("flatten: sequence %d is a scalar", i)
		}
		if i == 0 {
			inner = seq.Shape().Inner()
		} else if !seq.Shape().Inner().Equal(inner) {
			return nil, Lengths{}, Mismatch("flatten: sequence %d has rows of shape %v, expected %v",
				i, seq.Shape().Inner(), inner)
		}
		lengths.Sizes[i] = seq.Rows()
	}

	segs, seqAt := lengths.layout()
	pieces := make([]*Array, len(segs))
	for i, at := range seqAt {
		pieces[at] = seqs[i]
	}
	for i, p := range pieces {
		if p == nil {
			pieces[i] = e.Alloc(append(Shape{segs[i]}, inner...))
		}
	}

	if len(pieces) == 0 {
		return e.Alloc(append(Shape{0}, inner...)), lengths, nil
	}
	return e.Concat(pieces, 0), lengths, nil
}

// Unflatten splits a flat buffer back into per-sequence arrays, dropping the
// pad rows recorded in lengths.
//
// It is the left inverse of FlattenPadded: the returned arrays have exactly
// the recorded sizes, in batch order.
func Unflatten(e Engine, x *Array, lengths Lengths) ([]*Array, error) {
	if len(x.Shape()) == 0 {
		return nil, Mismatch("unflatten: scalar input")
	}
	if x.Rows() != lengths.Rows() {
		return nil, Mismatch("unflatten: %d rows, but lengths %v (pad %d, %s) describe %d",
			x.Rows(), lengths.Sizes, lengths.Pad, lengths.Mode, lengths.Rows())
	}

	segs, seqAt := lengths.layout()
	out := make([]*Array, len(lengths.Sizes))
	if len(segs) == 0 {
		return out, nil
	}
	parts := e.Split(x, segs, 0)
	for i, at := range seqAt {
		out[i] = parts[at]
	}
	return out, nil
}

// FlattenKeys concatenates key matrices the same way FlattenPadded concatenates
// arrays. Pad rows hold key 0.
func FlattenKeys(seqs []*Keys, pad int, mode PadMode) (*Keys, Lengths, error) {
	if pad < 0 {
		return nil, Lengths{}, fmt.Errorf("flatten: negative pad %d", pad)
	}

	lengths := Lengths{Sizes: make([]int, len(seqs)), Pad: pad, Mode: mode}
	cols := 0
	for i, seq := range seqs {
		if i == 0 {
			cols = seq.Cols()
		} else if seq.Cols() != cols {
			return nil, Lengths{}, Mismatch("flatten: sequence %d has %d key columns, expected %d", i, seq.Cols(), cols)
		}
		lengths.Sizes[i] = seq.Rows()
	}

	segs, seqAt := lengths.layout()
	isSeq := make(map[int]int, len(seqAt))
	for i, at := range seqAt {
		isSeq[at] = i
	}

	data := make([]uint64, 0, lengths.Rows()*cols)
	for i, n := range segs {
		if s, ok := isSeq[i]; ok {
			data = append(data, seqs[s].Data()...)
			continue
		}
		data = append(data, make([]uint64, n*cols)...)
	}
	return &Keys{rows: lengths.Rows(), cols: cols, data: data}, lengths, nil
}
