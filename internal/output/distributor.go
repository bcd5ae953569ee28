package output

import (
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"gocv.io/x/gocv"
)

// Stats counts distributor activity.
type Stats struct {
	Frames     uint64 `json:"frames"`
	SendErrors uint64 `json:"send_errors"`
}

// Distributor hands each composited frame to the paced sink and then to the
// latest-frame slot.
type Distributor struct {
	sink   Sink
	pacer  *Pacer
	latest *LatestFrame

	frames     atomic.Uint64
	sendErrors atomic.Uint64
}

// NewDistributor creates a distributor. sink may be nil, in which case frames
// only reach the latest-frame slot.
func NewDistributor(sink Sink, fps int, latest *LatestFrame) *Distributor {
	if latest == nil {
		latest = NewLatestFrame()
	}
	return &Distributor{
		sink:   sink,
		pacer:  NewPacer(fps),
		latest: latest,
	}
}

// Distribute sends frame to the sink, waits for the next frame boundary and
// publishes it to the latest-frame slot. A sink error is counted and logged
// but never stops distribution. It returns false when stop fired while pacing.
func (d *Distributor) Distribute(frame gocv.Mat, stop <-chan struct{}) bool {
	if d.sink != nil {
		if err := d.sink.Send(frame); err != nil {
			if d.sendErrors.Inc() == 1 {
				log.Warn().Err(err).Msg("virtual camera send failed")
			} else {
				log.Debug().Err(err).Msg("virtual camera send failed")
			}
		}
	}

	ok := d.pacer.Wait(stop)

	d.latest.Store(frame)
	d.frames.Inc()
	return ok
}

// Latest returns the shared latest-frame slot.
func (d *Distributor) Latest() *LatestFrame {
	return d.latest
}

// Stats returns a snapshot of the counters.
func (d *Distributor) Stats() Stats {
	return Stats{
		Frames:     d.frames.Load(),
		SendErrors: d.sendErrors.Load(),
	}
}
