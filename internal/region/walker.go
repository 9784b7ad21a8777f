package region

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hap/internal/exclude"
	"github.com/inodb/vibe-hap/internal/freq"
	"github.com/inodb/vibe-hap/internal/output"
	"github.com/inodb/vibe-hap/internal/phase"
	"github.com/inodb/vibe-hap/internal/vcf"
)

// progressInterval is how many parsed variants pass between progress logs.
const progressInterval = 100

// Opener opens a fresh record source positioned before the first record.
type Opener func() (vcf.RecordSource, error)

// Stats counts what happened to the variants of one walk.
type Stats struct {
	Parsed     int // records read from the source
	Written    int // rows written
	Excluded   int // overlapping an exclusion region
	NoCalls    int // over the no-call ceiling
	Unphased   int // rejected by the output policy
	Suppressed int // dropped by the frequency filter
}

func (s *Stats) add(o Stats) {
	s.Parsed += o.Parsed
	s.Written += o.Written
	s.Excluded += o.Excluded
	s.NoCalls += o.NoCalls
	s.Unphased += o.Unphased
	s.Suppressed += o.Suppressed
}

// Walker phases every variant in a region and writes the accepted rows.
type Walker struct {
	open       Opener
	engine     *phase.Engine
	exclude    *exclude.Regions
	annotator  *freq.Annotator
	writer     *output.TabWriter
	policy     Policy
	maxNoCalls *int
	logger     *zap.Logger
}

// NewWalker creates a walker. exclude may be nil.
func NewWalker(open Opener, engine *phase.Engine, exclude *exclude.Regions,
	annotator *freq.Annotator, writer *output.TabWriter, policy Policy, maxNoCalls *int) *Walker {
	return &Walker{
		open:       open,
		engine:     engine,
		exclude:    exclude,
		annotator:  annotator,
		writer:     writer,
		policy:     policy,
		maxNoCalls: maxNoCalls,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and skip messages.
func (w *Walker) SetLogger(l *zap.Logger) {
	w.logger = l
}

// Walk phases the variants overlapping chrom:start-end in file order.
func (w *Walker) Walk(ctx context.Context, chrom string, start, end int64) (Stats, error) {
	var stats Stats
	if end < start {
		return stats, nil
	}
	w.logger.Info("searching for variants in region",
		zap.String("chrom", chrom), zap.Int64("start", start), zap.Int64("end", end))

	src, err := w.open()
	if err != nil {
		return stats, err
	}
	defer src.Close()
	src.SetRegion(chrom, start, end)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		v, err := src.Next()
		if err != nil {
			return stats, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			return stats, nil
		}
		if stats.Parsed > 0 && stats.Parsed%progressInterval == 0 {
			w.logger.Info("progress",
				zap.Int("parsed", stats.Parsed), zap.Int("written", stats.Written),
				zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
		}
		stats.Parsed++

		if w.exclude.Overlaps(v.Chrom, v.Pos, v.End()) {
			stats.Excluded++
			w.logger.Debug("variant overlaps exclusion region",
				zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
			continue
		}

		res, err := w.engine.Phase(v, phase.UseOrientation)
		if err != nil {
			return stats, err
		}
		if res == nil {
			continue
		}
		if w.maxNoCalls != nil && res.NoCalls > *w.maxNoCalls {
			stats.NoCalls++
			w.logger.Debug("skipping variant with too many no-calls",
				zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos), zap.Int("no_calls", res.NoCalls))
			continue
		}
		if !w.accept(res) {
			stats.Unphased++
			w.logger.Debug("skipping variant rejected by output policy",
				zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos), zap.Stringer("policy", w.policy))
			continue
		}

		written, err := w.emit(res.Row(), v, true)
		if err != nil {
			return stats, err
		}
		if written {
			stats.Written++
		} else {
			stats.Suppressed++
		}
	}
}

func (w *Walker) accept(res *phase.Result) bool {
	switch w.policy {
	case PolicyPhasedInAll:
		return res.AllPhased
	case PolicyInformative:
		return res.Informative
	default:
		return true
	}
}

// emit annotates and writes a row. With filter false the frequency filter
// is not applied.
func (w *Walker) emit(row phase.Row, v *vcf.Variant, filter bool) (bool, error) {
	if !w.annotator.Enabled() {
		return true, w.writer.Write(row, nil)
	}
	f, keep, err := w.annotator.Annotate(row, v, filter)
	if err != nil {
		return false, fmt.Errorf("frequency lookup at %s:%d: %w", v.Chrom, v.Pos, err)
	}
	if !keep {
		return false, nil
	}
	return true, w.writer.Write(row, &f)
}
