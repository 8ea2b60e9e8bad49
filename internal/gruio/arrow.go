package gruio

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/samcharles93/lodgru/internal/lod"
	"github.com/samcharles93/lodgru/internal/tensor"
)

const (
	colSeq    = "seq"
	colStep   = "step"
	colHidden = "hidden"
)

func hiddenSchema(d int) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: colSeq, Type: arrow.PrimitiveTypes.Int32},
		{Name: colStep, Type: arrow.PrimitiveTypes.Int32},
		{Name: colHidden, Type: arrow.FixedSizeListOf(int32(d), arrow.PrimitiveTypes.Float64)},
	}, nil)
}

// WriteHiddenArrow writes hidden (one row per flat input row) as an Arrow IPC
// stream with one record batch. Each row carries its sequence index and its
// position within that sequence.
func WriteHiddenArrow(w io.Writer, b *lod.Batch, hidden *tensor.Mat) error {
	if hidden.R != b.Total() {
		return fmt.Errorf("arrow export: hidden has %d rows, batch has %d", hidden.R, b.Total())
	}
	mem := memory.NewGoAllocator()
	schema := hiddenSchema(hidden.C)

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	seqB := rb.Field(0).(*array.Int32Builder)
	stepB := rb.Field(1).(*array.Int32Builder)
	listB := rb.Field(2).(*array.FixedSizeListBuilder)
	valB := listB.ValueBuilder().(*array.Float64Builder)

	seqB.Reserve(hidden.R)
	stepB.Reserve(hidden.R)
	valB.Reserve(hidden.R * hidden.C)
	for i := 0; i < hidden.R; i++ {
		seq, pos := b.SeqOf(i)
		seqB.Append(int32(seq))
		stepB.Append(int32(pos))
		listB.Append(true)
		valB.AppendValues(hidden.Row(i), nil)
	}

	rec := rb.NewRecord()
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		_ = wr.Close()
		return fmt.Errorf("arrow export: %w", err)
	}
	return wr.Close()
}

// ReadHiddenArrow reads a stream written by WriteHiddenArrow back into a
// matrix. Rows of all record batches are concatenated in order.
func ReadHiddenArrow(r io.Reader) (tensor.Mat, error) {
	mem := memory.NewGoAllocator()
	rd, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return tensor.Mat{}, fmt.Errorf("arrow import: %w", err)
	}
	defer rd.Release()

	idx := rd.Schema().FieldIndices(colHidden)
	if len(idx) != 1 {
		return tensor.Mat{}, fmt.Errorf("arrow import: missing %q column", colHidden)
	}
	listType, ok := rd.Schema().Field(idx[0]).Type.(*arrow.FixedSizeListType)
	if !ok {
		return tensor.Mat{}, fmt.Errorf("arrow import: %q is not a fixed size list", colHidden)
	}
	d := int(listType.Len())

	var data []float64
	rows := 0
	for rd.Next() {
		rec := rd.Record()
		col, ok := rec.Column(idx[0]).(*array.FixedSizeList)
		if !ok {
			return tensor.Mat{}, fmt.Errorf("arrow import: unexpected column type %T", rec.Column(idx[0]))
		}
		values, ok := col.ListValues().(*array.Float64)
		if !ok {
			return tensor.Mat{}, fmt.Errorf("arrow import: hidden values are %s, want float64", col.ListValues().DataType())
		}
		raw := values.Float64Values()
		off := col.Data().Offset()
		n := col.Len()
		data = append(data, raw[off*d:(off+n)*d]...)
		rows += n
	}
	if err := rd.Err(); err != nil {
		return tensor.Mat{}, fmt.Errorf("arrow import: %w", err)
	}
	return tensor.NewMatFromData(rows, d, data), nil
}
