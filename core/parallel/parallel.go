// Package parallel は行単位の処理を CPU コア数に応じて分割実行するヘルパーを提供します。
// 推定器の予測（h(Xθ) の計算）など、行同士が独立な処理に使用します。
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize は items 個の要素を CPU コア数で分割し、各区間 [start, end) に対して
// fn を並列に実行します。すべての fn が戻るまでブロックします。
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWorkers(items, runtime.NumCPU(), fn)
}

// ParallelizeWorkers は workers 個のゴルーチンで items 個の要素を分割処理します。
// workers が 1 以下の場合は呼び出し元のゴルーチンで逐次実行します。
func ParallelizeWorkers(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers > items {
		workers = items
	}
	if workers <= 1 {
		fn(0, items)
		return
	}

	// 切り上げ除算
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold は items が threshold を超える場合のみ並列化します。
// それ以下の場合は逐次処理を行います。
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
