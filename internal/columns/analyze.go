package columns

import (
	"strings"

	"github.com/abrezinsky/moherun/internal/models"
)

// Analysis is one cleaned row.
type Analysis struct {
	Name         string
	RawDistance  float64
	Frequency    int
	DailyRecords map[string]float64
	// HasPartner is set when the marker column holds anything but a blank or a "no".
	// Partner stays empty when the cell only says "yes".
	HasPartner bool
	Partner    string
}

var (
	truthyMarker = map[string]bool{"yes": true, "y": true, "true": true, "1": true, "✓": true, "✔": true, "x": true, "是": true}
	falsyMarker  = map[string]bool{"no": true, "n": true, "false": true, "0": true, "-": true, "否": true}
)

// Analyze applies c to row. ok is false when the row has no resolvable name and
// must be skipped.
//
// The raw distance is the total column when it parses to a positive number, and
// otherwise the sum of the positive daily values. A present-but-zero total therefore
// does not erase real daily data.
func Analyze(row models.RawRow, c Classification) (Analysis, bool) {
	if !c.NameFound {
		return Analysis{}, false
	}
	name := strings.TrimSpace(row.Get(c.NameKey))
	if name == "" {
		return Analysis{}, false
	}

	a := Analysis{
		Name:         name,
		DailyRecords: make(map[string]float64, len(c.DailyKeys)),
	}

	var sum float64
	for _, k := range c.DailyKeys {
		v, ok := ParseNumber(row.Get(k))
		if !ok {
			continue
		}
		a.DailyRecords[k] = v
		if v > 0 {
			a.Frequency++
			sum += v
		}
	}

	a.RawDistance = sum
	if c.HasTotal() {
		if total, ok := ParseNumber(row.Get(c.TotalKey)); ok && total > 0 {
			a.RawDistance = total
		}
	}

	if c.PartnerKey != "" {
		marker := strings.TrimSpace(row.Get(c.PartnerKey))
		lower := strings.ToLower(marker)
		switch {
		case marker == "" || falsyMarker[lower]:
		case truthyMarker[lower]:
			a.HasPartner = true
		default:
			a.HasPartner = true
			a.Partner = marker
		}
	}
	return a, true
}

// AnalyzeRow classifies row's own headers and analyzes it.
func AnalyzeRow(row models.RawRow) (Analysis, bool) {
	return Analyze(row, Classify(row.Headers))
}
