package columns

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/abrezinsky/moherun/internal/models"
)

var dayTokens = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmon(day)?\b|(周|星期|礼拜)一`),
	regexp.MustCompile(`(?i)\btues?(day)?\b|(周|星期|礼拜)二`),
	regexp.MustCompile(`(?i)\bwed(nesday)?\b|(周|星期|礼拜)三`),
	regexp.MustCompile(`(?i)\bthu(rs?)?(day)?\b|(周|星期|礼拜)四`),
	regexp.MustCompile(`(?i)\bfri(day)?\b|(周|星期|礼拜)五`),
	regexp.MustCompile(`(?i)\bsat(urday)?\b|(周|星期|礼拜)六`),
	regexp.MustCompile(`(?i)\bsun(day)?\b|(周|星期|礼拜)[日天]`),
}

var dateParts = regexp.MustCompile(`^\s*(\d{1,2})[/-](\d{1,2})`)

// DayIndex returns 0 for Monday through 6 for Sunday, or -1 when label carries no weekday.
func DayIndex(label string) int {
	for i, re := range dayTokens {
		if re.MatchString(label) {
			return i
		}
	}
	return -1
}

// dateKey turns a leading M/D into a sortable number. Months before the challenge's
// December start roll into the next year.
func dateKey(label string) (int, bool) {
	m := dateParts.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month < 12 {
		month += 12
	}
	return month*100 + day, true
}

// OrderDays returns the daily records Monday first. Weekday-labelled columns come
// before date-only columns, which are ordered by date; anything else sorts by label.
func OrderDays(records map[string]float64) []models.DayEntry {
	out := make([]models.DayEntry, 0, len(records))
	for label, v := range records {
		out = append(out, models.DayEntry{Label: label, Distance: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Label, out[j].Label
		ai, bi := DayIndex(a), DayIndex(b)
		switch {
		case ai >= 0 && bi >= 0 && ai != bi:
			return ai < bi
		case ai >= 0 && bi < 0:
			return true
		case ai < 0 && bi >= 0:
			return false
		}
		ad, aok := dateKey(a)
		bd, bok := dateKey(b)
		switch {
		case aok && bok && ad != bd:
			return ad < bd
		case aok != bok:
			return aok
		}
		return strings.Compare(a, b) < 0
	})
	return out
}
