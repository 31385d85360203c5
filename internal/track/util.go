package track

import (
	"fmt"
	"math"

	"github.com/curbz/skytrace/internal/errs"
)

var (
	errBadRecordLength = fmt.Errorf("%w: unexpected record length", errs.ErrIntegrity)
)

func floatBits(f float64) uint64   { return math.Float64bits(f) }
func bitsFloat(b uint64) float64   { return math.Float64frombits(b) }
