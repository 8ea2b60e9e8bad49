package tensor

import (
	"math"
	"testing"
)

func TestRowsAndColsViewsShareStorage(t *testing.T) {
	m := NewMat(4, 6)
	for i := range m.Data {
		m.Data[i] = float64(i)
	}

	rows := m.Rows(1, 3)
	if rows.R != 2 || rows.C != 6 {
		t.Fatalf("rows view shape %dx%d", rows.R, rows.C)
	}
	if rows.Row(0)[0] != 6 || rows.Row(1)[5] != 17 {
		t.Fatalf("unexpected rows view contents: %v", rows.Data)
	}

	cols := m.Cols(2, 5)
	if cols.R != 4 || cols.C != 3 {
		t.Fatalf("cols view shape %dx%d", cols.R, cols.C)
	}
	if got := cols.Row(3); got[0] != 20 || got[2] != 22 {
		t.Fatalf("unexpected cols row: %v", got)
	}

	cols.Row(0)[0] = -1
	if m.Row(0)[2] != -1 {
		t.Fatal("write through cols view not visible in parent")
	}

	sub := cols.Rows(1, 2)
	if got := sub.Row(0); len(got) != 3 || got[0] != 8 {
		t.Fatalf("nested view row: %v", got)
	}
}

func TestOverlaps(t *testing.T) {
	m := NewMat(4, 4)
	a := m.Rows(0, 2)
	b := m.Rows(2, 4)
	c := m.Rows(1, 3)
	other := NewMat(4, 4)

	if Overlaps(&a, &b) {
		t.Error("disjoint row views reported as overlapping")
	}
	if !Overlaps(&a, &c) {
		t.Error("overlapping row views not detected")
	}
	if Overlaps(&m, &other) {
		t.Error("separate matrices reported as overlapping")
	}
}

func TestNewMatFromRows(t *testing.T) {
	m, err := NewMatFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("NewMatFromRows: %v", err)
	}
	if m.R != 3 || m.C != 2 || m.Row(2)[1] != 6 {
		t.Fatalf("unexpected matrix %+v", m)
	}
	if _, err := NewMatFromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected ragged rows error")
	}
}

func TestFillRandReproducible(t *testing.T) {
	a := NewMat(5, 5)
	b := NewMat(5, 5)
	FillRand(&a, 42)
	FillRand(&b, 42)
	if !Equal(&a, &b) {
		t.Fatal("same seed produced different matrices")
	}
	for _, v := range a.Data {
		if v < 0 || v >= 1 {
			t.Fatalf("value %v outside [0,1)", v)
		}
	}
}

func TestCheckFinite(t *testing.T) {
	m := NewMatFromData(2, 3, []float64{0, math.NaN(), 1, math.Inf(-1), 2, math.Inf(1)})
	info := CheckFinite(&m)
	if info.NaNCount != 1 || info.InfCount != 2 {
		t.Fatalf("got %+v", info)
	}
	if info.IsValid() {
		t.Fatal("expected invalid")
	}
	if len(info.Positions) != 3 || info.Positions[0] != 1 || info.Positions[1] != 3 {
		t.Fatalf("positions: %v", info.Positions)
	}
}

func TestMaxAbsDiff(t *testing.T) {
	a := NewMatFromData(1, 3, []float64{1, 2, 3})
	b := NewMatFromData(1, 3, []float64{1, 2.5, 2})
	if d := MaxAbsDiff(&a, &b); d != 1 {
		t.Fatalf("got %v, want 1", d)
	}
	b.Data[0] = math.NaN()
	if d := MaxAbsDiff(&a, &b); !math.IsInf(d, 1) {
		t.Fatalf("NaN should yield +Inf, got %v", d)
	}
}

func TestActivations(t *testing.T) {
	tests := []struct {
		name string
		f    func(float64) float64
		in   float64
		want float64
	}{
		{"sigmoid zero", Sigmoid, 0, 0.5},
		{"tanh zero", Tanh, 0, 0},
		{"relu negative", Relu, -2, 0},
		{"relu positive", Relu, 3, 3},
		{"identity", Identity, -1.25, -1.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f(tt.in); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
