package tensor

import (
	"runtime"
)

const (
	defaultTileM = 32
	defaultTileN = 32
	defaultTileK = 16

	maxTileM = 64
	maxTileN = 64
	maxTileK = 64
)

// Tile sizes are variables so tests can sweep them without recompiling.
var (
	tileM = defaultTileM
	tileN = defaultTileN
	tileK = defaultTileK
)

// selectGemmTiles picks the row, column and depth tiles. Only the depth tile
// tracks the shape; the row and column tiles stay fixed.
func selectGemmTiles(k int) (int, int, int) {
	if tileM != defaultTileM || tileN != defaultTileN || tileK != defaultTileK {
		return clampTile(tileM, maxTileM), clampTile(tileN, maxTileN), clampTile(tileK, maxTileK)
	}

	tk := defaultTileK
	switch {
	case k >= 192:
		tk = 32
	case k >= 96:
		tk = 24
	}

	return defaultTileM, defaultTileN, clampTile(tk, maxTileK)
}

func clampTile(value, max int) int {
	if value < 1 {
		return 1
	}
	if value > max {
		return max
	}
	return value
}

type gemmTask struct {
	C, A, B     *Mat
	alpha, beta float64
	rs, re      int
	tm, tn, tk  int
	done        chan struct{}
}

type gemmPool struct {
	size  int
	tasks chan gemmTask
	// doneSlots holds reusable completion channels. Each has room for one
	// signal per worker, so a worker never blocks on a caller that is still
	// queueing tasks.
	doneSlots chan chan struct{}
}

func newGemmPool() *gemmPool {
	size := runtime.GOMAXPROCS(0)
	if size < 1 {
		size = 1
	}
	p := &gemmPool{
		size:      size,
		tasks:     make(chan gemmTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, size)
	}
	for w := 0; w < size; w++ {
		go func() {
			for task := range p.tasks {
				gemmRangeRows(task.C, task.A, task.B, task.alpha, task.beta, task.rs, task.re, task.tm, task.tn, task.tk)
				task.done <- struct{}{}
			}
		}()
	}
	return p
}

var gemmWorkPool = newGemmPool()

// PoolSize reports the number of GEMM workers available to GemmPar.
func PoolSize() int {
	return gemmWorkPool.size
}

// GemmPar computes the matrix product C = alpha*A*B + beta*C using a
// blocked algorithm and parallelising across ranges of output rows.
//
// Each output row is owned by exactly one worker and its accumulation order
// does not depend on the worker count, so results are identical for any
// workers value.
func GemmPar(C, A, B *Mat, alpha, beta float64, workers int) {
	if A.C != B.R || C.R != A.R || C.C != B.C {
		panic("gemm: dimension mismatch")
	}
	if C.R == 0 || C.C == 0 {
		return
	}

	tm, tn, tk := selectGemmTiles(A.C)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > C.R {
		workers = C.R
	}
	if workers <= 1 {
		gemmRangeRows(C, A, B, alpha, beta, 0, C.R, tm, tn, tk)
		return
	}
	if workers > gemmWorkPool.size {
		workers = gemmWorkPool.size
	}

	chunk := (C.R + workers - 1) / workers

	done := <-gemmWorkPool.doneSlots
	active := 0
	for w := 0; w < workers; w++ {
		rs := w * chunk
		re := min(rs+chunk, C.R)
		if rs >= re {
			break
		}
		active++
		gemmWorkPool.tasks <- gemmTask{
			C:     C,
			A:     A,
			B:     B,
			alpha: alpha,
			beta:  beta,
			rs:    rs,
			re:    re,
			tm:    tm,
			tn:    tn,
			tk:    tk,
			done:  done,
		}
	}
	for i := 0; i < active; i++ {
		<-done
	}
	gemmWorkPool.doneSlots <- done
}

// gemmRangeRows performs a blocked GEMM on a contiguous range of rows of C.
func gemmRangeRows(C, A, B *Mat, alpha, beta float64, rs, re int, tm, tn, tk int) {
	cStride := C.Stride
	n := C.C
	if beta == 0 {
		for i := rs; i < re; i++ {
			base := i * cStride
			clear(C.Data[base : base+n])
		}
	} else if beta != 1 {
		for i := rs; i < re; i++ {
			base := i * cStride
			for j := 0; j < n; j++ {
				C.Data[base+j] *= beta
			}
		}
	}

	k := A.C
	aStride := A.Stride
	bStride := B.Stride

	for i0 := rs; i0 < re; i0 += tm {
		iMax := min(i0+tm, re)
		for k0 := 0; k0 < k; k0 += tk {
			kMax := min(k0+tk, k)
			for j0 := 0; j0 < n; j0 += tn {
				jMax := min(j0+tn, n)
				if alpha == 1 {
					blockUpdateAlpha1(C.Data, A.Data, B.Data, cStride, aStride, bStride, i0, iMax, j0, jMax, k0, kMax)
				} else {
					blockUpdateGeneric(C.Data, A.Data, B.Data, cStride, aStride, bStride, alpha, i0, iMax, j0, jMax, k0, kMax)
				}
			}
		}
	}
}

func blockUpdateGeneric(cData, aData, bData []float64, cStride, aStride, bStride int, alpha float64, i0, iMax, j0, jMax, k0, kMax int) {
	for i := i0; i < iMax; i++ {
		cRow := cData[i*cStride : i*cStride+jMax]
		aRow := aData[i*aStride : i*aStride+kMax]
		for kk := k0; kk < kMax; kk++ {
			a := alpha * aRow[kk]
			bRow := bData[kk*bStride : kk*bStride+jMax]
			for j := j0; j < jMax; j++ {
				cRow[j] += a * bRow[j]
			}
		}
	}
}

func blockUpdateAlpha1(cData, aData, bData []float64, cStride, aStride, bStride int, i0, iMax, j0, jMax, k0, kMax int) {
	for i := i0; i < iMax; i++ {
		cRow := cData[i*cStride : i*cStride+jMax]
		aRow := aData[i*aStride : i*aStride+kMax]
		for kk := k0; kk < kMax; kk++ {
			a := aRow[kk]
			bRow := bData[kk*bStride : kk*bStride+jMax]
			for j := j0; j < jMax; j++ {
				cRow[j] += a * bRow[j]
			}
		}
	}
}
