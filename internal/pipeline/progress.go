package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/metrics"
)

// Progress reports a chunk loop about twenty times, splitting elapsed time
// into I/O and computation.
type Progress struct {
	log   logrus.FieldLogger
	stage string
	total int
	step  int
	done  int
	io    time.Duration
	work  time.Duration
}

// NewProgress creates a reporter for total items.
func NewProgress(log logrus.FieldLogger, stage string, total int) *Progress {
	return &Progress{
		log:   log,
		stage: stage,
		total: total,
		step:  max(1, total/20),
	}
}

// Tick logs when index falls on a reporting step.
func (p *Progress) Tick(index int) {
	p.done = index
	if index%p.step == 0 {
		p.report()
	}
}

// IO runs fn and accounts its time as I/O.
func (p *Progress) IO(fn func() error) error {
	start := time.Now()
	err := fn()
	p.io += time.Since(start)

	return err
}

// Work runs fn and accounts its time as computation.
func (p *Progress) Work(fn func() error) error {
	start := time.Now()
	err := fn()
	p.work += time.Since(start)

	return err
}

// Finish logs the final line.
func (p *Progress) Finish() {
	p.done = p.total
	p.report()
}

// Done logs the final line and counts the processed items as written.
func (p *Progress) Done() {
	p.Finish()
	metrics.RecordsProcessed.WithLabelValues(p.stage).Add(float64(p.total))
}

func (p *Progress) report() {
	p.log.WithFields(logrus.Fields{
		"done":    p.done,
		"total":   p.total,
		"io":      p.io.Round(time.Second).String(),
		"working": p.work.Round(time.Second).String(),
	}).Info("progress")
}
