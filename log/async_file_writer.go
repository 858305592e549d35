package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// TimeTicker fires on the hour boundary every rotateHours hours.
type TimeTicker struct {
	stop chan struct{}
	C    <-chan time.Time
}

// NewTimeTicker creates a TimeTicker that notifies based on rotateHours parameter.
// if rotateHours is 1 and current time is 11:32 it means that the ticker will tick at 12:00
// if rotateHours is 2 and current time is 09:12 means that the ticker will tick at 11:00
// specially, if rotateHours is 0, then no rotation
func NewTimeTicker(rotateHours uint) *TimeTicker {
	ch := make(chan time.Time)
	tt := TimeTicker{
		stop: make(chan struct{}),
		C:    ch,
	}
	if rotateHours > 0 {
		tt.startTicker(ch, rotateHours)
	}
	return &tt
}

// Stop terminates the ticker goroutine. It is a no-op for non-rotating tickers.
func (tt *TimeTicker) Stop() {
	select {
	case tt.stop <- struct{}{}:
	default:
	}
}

func (tt *TimeTicker) startTicker(ch chan time.Time, rotateHours uint) {
	go func() {
		next := nextRotationHour(time.Now(), rotateHours)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				if t.Hour() == next {
					ch <- t
					next = nextRotationHour(time.Now(), rotateHours)
				}
			case <-tt.stop:
				return
			}
		}
	}()
}

func nextRotationHour(now time.Time, delta uint) int {
	return now.Add(time.Hour * time.Duration(delta)).Hour()
}

// AsyncFileWriter is an io.Writer that queues records and appends them to a
// time-suffixed file from a background goroutine. The configured path is kept
// as a symlink to the active file. Records are dropped when the queue is full.
type AsyncFileWriter struct {
	filePath string
	fd       *os.File

	wg      sync.WaitGroup
	started atomic.Bool
	dropped atomic.Uint64
	buf     chan []byte
	stop    chan struct{}
	ticker  *TimeTicker
}

// NewAsyncFileWriter creates a writer for filePath queueing up to bufSize records.
func NewAsyncFileWriter(filePath string, bufSize int64, rotateHours uint) *AsyncFileWriter {
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		panic(fmt.Sprintf("get file path of logger error. filePath=%s, err=%s", filePath, err))
	}
	return &AsyncFileWriter{
		filePath: absFilePath,
		buf:      make(chan []byte, bufSize),
		stop:     make(chan struct{}),
		ticker:   NewTimeTicker(rotateHours),
	}
}

func (w *AsyncFileWriter) initLogFile() error {
	realFilePath := w.timeFilePath(w.filePath)
	fd, err := os.OpenFile(realFilePath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	w.fd = fd

	if _, err := os.Lstat(w.filePath); err == nil {
		if err := os.Remove(w.filePath); err != nil {
			return err
		}
	}
	return os.Symlink(realFilePath, w.filePath)
}

// Start opens the log file and launches the writer goroutine.
func (w *AsyncFileWriter) Start() error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("logger has already been started")
	}
	if err := w.initLogFile(); err != nil {
		w.started.Store(false)
		return err
	}
	w.wg.Add(1)
	go func() {
		defer func() {
			w.flushBuffer()
			w.flushAndClose()
			w.started.Store(false)
			w.wg.Done()
		}()
		for {
			select {
			case msg := <-w.buf:
				w.SyncWrite(msg)
			case <-w.stop:
				return
			}
		}
	}()
	return nil
}

func (w *AsyncFileWriter) flushBuffer() {
	for {
		select {
		case msg := <-w.buf:
			w.SyncWrite(msg)
		default:
			return
		}
	}
}

// SyncWrite writes msg to the active file, rotating it first if due.
func (w *AsyncFileWriter) SyncWrite(msg []byte) {
	w.rotateFile()
	if w.fd != nil {
		w.fd.Write(msg)
	}
}

func (w *AsyncFileWriter) rotateFile() {
	select {
	case <-w.ticker.C:
		if err := w.flushAndClose(); err != nil {
			fmt.Fprintf(os.Stderr, "flush and close file error. err=%s", err)
		}
		if err := w.initLogFile(); err != nil {
			fmt.Fprintf(os.Stderr, "init log file error. err=%s", err)
		}
	default:
	}
}

// Stop drains the queue, closes the file and waits for the writer goroutine.
func (w *AsyncFileWriter) Stop() {
	if !w.started.Load() {
		return
	}
	w.stop <- struct{}{}
	w.wg.Wait()
	w.ticker.Stop()
}

// Write queues a copy of msg. The record is dropped if the queue is full.
func (w *AsyncFileWriter) Write(msg []byte) (int, error) {
	buf := make([]byte, len(msg))
	copy(buf, msg)

	select {
	case w.buf <- buf:
	default:
		w.dropped.Add(1)
	}
	return len(msg), nil
}

// Dropped reports how many records were discarded because the queue was full.
func (w *AsyncFileWriter) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *AsyncFileWriter) flushAndClose() error {
	if w.fd == nil {
		return nil
	}
	if err := w.fd.Sync(); err != nil {
		return err
	}
	err := w.fd.Close()
	w.fd = nil
	return err
}

func (w *AsyncFileWriter) timeFilePath(filePath string) string {
	return filePath + "." + time.Now().Format("2006-01-02_15")
}
