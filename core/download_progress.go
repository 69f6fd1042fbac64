package core

import (
	"io"
	"math"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	suffixes = [5]string{"B", "KB", "MB", "GB", "TB"}
)

func round(val float64, roundOn float64, places int) (newVal float64) {
	var round float64
	pow := math.Pow(10, float64(places))
	digit := pow * val
	_, div := math.Modf(digit)
	if div >= roundOn {
		round = math.Ceil(digit)
	} else {
		round = math.Floor(digit)
	}
	newVal = round / pow
	return
}

func humanFileSize(size float64) string {
	if size < 1 {
		return "0 B"
	}
	base := math.Log(size) / math.Log(1024)
	index := int(math.Floor(base))
	if index >= len(suffixes) {
		index = len(suffixes) - 1
	}
	getSize := round(size/math.Pow(1024, float64(index)), .5, 2)
	return strconv.FormatFloat(getSize, 'f', -1, 64) + " " + suffixes[index]
}

// downloadProgressCounter counts bytes written through it and reports the
// running total on every tick of its interval and once more on Close.
type downloadProgressCounter struct {
	written    int64
	onProgress func(written string, done bool)
	printTimer *time.Ticker
	done       chan struct{}
}

func newDownloadProgressCounter(interval time.Duration, onProgress func(written string, done bool)) io.WriteCloser {
	this := &downloadProgressCounter{onProgress: onProgress}
	this.printTimer = time.NewTicker(interval)
	this.done = make(chan struct{})
	go func() {
		for {
			select {
			case <-this.printTimer.C:
				this.reportProgress(false)
			case <-this.done:
				return
			}
		}
	}()
	return this
}

func (this *downloadProgressCounter) Write(p []byte) (n int, e error) {
	n = len(p)
	atomic.AddInt64(&this.written, int64(n))
	return
}

func (this *downloadProgressCounter) Close() error {
	this.printTimer.Stop()
	close(this.done)
	this.reportProgress(true)
	return nil
}

func (this *downloadProgressCounter) reportProgress(done bool) {
	this.onProgress(humanFileSize(float64(atomic.LoadInt64(&this.written))), done)
}
