package output

import (
	"sync"
	"testing"

	"gocv.io/x/gocv"
)

func taggedFrame(tag byte) gocv.Mat {
	v := float64(tag)
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 48, 64, gocv.MatTypeCV8UC3)
}

func TestLatestFrame_Empty(t *testing.T) {
	l := NewLatestFrame()

	frame, seq, ok := l.Load()
	defer frame.Close()

	if ok {
		t.Error("Load() on an empty slot returned ok")
	}
	if seq != 0 {
		t.Errorf("seq = %d, want 0", seq)
	}
}

func TestLatestFrame_LastWriteWins(t *testing.T) {
	l := NewLatestFrame()

	for tag := byte(1); tag <= 3; tag++ {
		f := taggedFrame(tag)
		l.Store(f)
		f.Close()
	}

	frame, seq, ok := l.Load()
	if !ok {
		t.Fatal("Load() returned no frame")
	}
	defer frame.Close()

	if seq != 3 {
		t.Errorf("seq = %d, want 3", seq)
	}
	if got := frame.GetUCharAt(0, 0); got != 3 {
		t.Errorf("frame tag = %d, want 3", got)
	}
}

func TestLatestFrame_StoreCopies(t *testing.T) {
	l := NewLatestFrame()

	f := taggedFrame(7)
	l.Store(f)
	f.SetTo(gocv.NewScalar(9, 9, 9, 0))
	f.Close()

	frame, _, _ := l.Load()
	defer frame.Close()

	if got := frame.GetUCharAt(0, 0); got != 7 {
		t.Errorf("slot changed with the source frame: tag = %d, want 7", got)
	}
}

func TestLatestFrame_Clear(t *testing.T) {
	l := NewLatestFrame()
	f := taggedFrame(1)
	l.Store(f)
	f.Close()

	l.Clear()

	frame, _, ok := l.Load()
	frame.Close()
	if ok {
		t.Error("Load() after Clear() returned a frame")
	}
	if l.Seq() != 1 {
		t.Errorf("Seq() = %d, want 1 after Clear()", l.Seq())
	}
}

func TestLatestFrame_NoTornReads(t *testing.T) {
	l := NewLatestFrame()
	const writes = 200

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 1; i <= writes; i++ {
			f := taggedFrame(byte(i % 256))
			l.Store(f)
			f.Close()
		}
	}()

	errs := make(chan string, 1)
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastSeq uint64
			for {
				select {
				case <-done:
					return
				default:
				}

				frame, seq, ok := l.Load()
				if !ok {
					frame.Close()
					continue
				}
				data := frame.ToBytes()
				frame.Close()

				if seq < lastSeq {
					select {
					case errs <- "sequence went backwards":
					default:
					}
					return
				}
				lastSeq = seq

				tag := data[0]
				for _, b := range data {
					if b != tag {
						select {
						case errs <- "torn frame observed":
						default:
						}
						return
					}
				}
				if byte(seq%256) != tag {
					select {
					case errs <- "frame does not match its sequence number":
					default:
					}
					return
				}
			}
		}()
	}

	wg.Wait()
	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}
}
