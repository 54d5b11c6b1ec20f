package columns_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/abrezinsky/moherun/internal/columns"
	"github.com/abrezinsky/moherun/internal/models"
)

func row(headers []string, values ...string) models.RawRow {
	return models.NewRawRow(headers, values)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		wantName    string
		wantTotal   string
		wantPartner string
		wantDaily   []string
	}{
		{
			name:      "english weekdays with total",
			headers:   []string{"Name", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun", "Total (km)"},
			wantName:  "Name",
			wantTotal: "Total (km)",
			wantDaily: []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		},
		{
			name:      "chinese headers",
			headers:   []string{"队员", "周一", "周二", "周三", "周四", "周五", "周六", "周日", "总距离"},
			wantName:  "队员",
			wantTotal: "总距离",
			wantDaily: []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"},
		},
		{
			name:      "short dates without total",
			headers:   []string{"Runner", "12/15", "12-16", "12/17 Wed"},
			wantName:  "Runner",
			wantDaily: []string{"12/15", "12-16", "12/17 Wed"},
		},
		{
			name:      "metadata columns are never daily",
			headers:   []string{"Name", "Timestamp", "Mon date", "Photo URL", "Video", "Notes", "Sun"},
			wantName:  "Name",
			wantDaily: []string{"Sun"},
		},
		{
			name:      "first total wins",
			headers:   []string{"Name", "Distance", "Total", "Mon"},
			wantName:  "Name",
			wantTotal: "Distance",
			wantDaily: []string{"Mon"},
		},
		{
			name:      "day header with unit is daily not total",
			headers:   []string{"Name", "Mon km", "Tue km"},
			wantName:  "Name",
			wantDaily: []string{"Mon km", "Tue km"},
		},
		{
			name:      "id column is not a total",
			headers:   []string{"Name", "Runner ID total", "Fri"},
			wantName:  "Name",
			wantDaily: []string{"Fri"},
		},
		{
			name:        "partner column",
			headers:     []string{"Partner Name", "Name", "Sat", "Sun"},
			wantName:    "Name",
			wantPartner: "Partner Name",
			wantDaily:   []string{"Sat", "Sun"},
		},
		{
			name:      "exact name preferred over fuzzy",
			headers:   []string{"Nickname", "队员", "Mon"},
			wantName:  "队员",
			wantDaily: []string{"Mon"},
		},
		{
			name:      "no name",
			headers:   []string{"Mon", "Tue"},
			wantDaily: []string{"Mon", "Tue"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := columns.Classify(tt.headers)
			if c.NameKey != tt.wantName {
				t.Errorf("NameKey = %q, want %q", c.NameKey, tt.wantName)
			}
			if c.NameFound != (tt.wantName != "") {
				t.Errorf("NameFound = %v", c.NameFound)
			}
			if c.TotalKey != tt.wantTotal {
				t.Errorf("TotalKey = %q, want %q", c.TotalKey, tt.wantTotal)
			}
			if c.PartnerKey != tt.wantPartner {
				t.Errorf("PartnerKey = %q, want %q", c.PartnerKey, tt.wantPartner)
			}
			if diff := cmp.Diff(tt.wantDaily, c.DailyKeys, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("DailyKeys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	headers := []string{"Name", "Mon", "Tue", "Total", "Timestamp", "Sun"}
	first := columns.Classify(headers)
	for i := 0; i < 50; i++ {
		again := columns.Classify(headers)
		if again.TotalKey != first.TotalKey || again.NameKey != first.NameKey {
			t.Fatalf("classification changed on iteration %d", i)
		}
		if diff := cmp.Diff(first.DailyKeys, again.DailyKeys); diff != "" {
			t.Fatalf("daily keys changed on iteration %d: %s", i, diff)
		}
	}
}

func TestAnalyze_Streak(t *testing.T) {
	headers := []string{"Name", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

	tests := []struct {
		name      string
		values    []string
		wantRaw   float64
		wantFreq  int
		wantDays  int
	}{
		{"five days", []string{"Ann", "3", "3", "3", "3", "3", "0", "0"}, 15, 5, 7},
		{"four days", []string{"Ann", "3", "3", "3", "3", "0", "0", "0"}, 12, 4, 7},
		{"units and junk", []string{"Ann", "5.5km", "rest", "", "-2", "1", "", ""}, 6.5, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := columns.AnalyzeRow(row(headers, tt.values...))
			if !ok {
				t.Fatal("expected row to be analyzed")
			}
			if a.RawDistance != tt.wantRaw {
				t.Errorf("RawDistance = %v, want %v", a.RawDistance, tt.wantRaw)
			}
			if a.Frequency != tt.wantFreq {
				t.Errorf("Frequency = %d, want %d", a.Frequency, tt.wantFreq)
			}
			if len(a.DailyRecords) != tt.wantDays {
				t.Errorf("recorded %d days, want %d: %v", len(a.DailyRecords), tt.wantDays, a.DailyRecords)
			}
		})
	}
}

func TestAnalyze_ZeroEntriesAreRecorded(t *testing.T) {
	a, ok := columns.AnalyzeRow(row([]string{"Name", "Mon", "Tue"}, "Bo", "0", "4"))
	if !ok {
		t.Fatal("expected row")
	}
	if v, present := a.DailyRecords["Mon"]; !present || v != 0 {
		t.Errorf("expected Mon recorded as 0, got %v (present=%v)", v, present)
	}
	if a.Frequency != 1 {
		t.Errorf("Frequency = %d, want 1", a.Frequency)
	}
}

func TestAnalyze_TotalPolicy(t *testing.T) {
	headers := []string{"Name", "Mon", "Tue", "Total"}

	tests := []struct {
		name  string
		total string
		want  float64
	}{
		{"positive total wins over daily sum", "42", 42},
		{"zero total falls back to daily sum", "0", 7},
		{"blank total falls back to daily sum", "", 7},
		{"garbage total falls back to daily sum", "n/a", 7},
		{"negative total falls back to daily sum", "-3", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := columns.AnalyzeRow(row(headers, "Cy", "3", "4", tt.total))
			if !ok {
				t.Fatal("expected row")
			}
			if a.RawDistance != tt.want {
				t.Errorf("RawDistance = %v, want %v", a.RawDistance, tt.want)
			}
			if a.Frequency != 2 {
				t.Errorf("Frequency = %d, want 2", a.Frequency)
			}
		})
	}
}

func TestAnalyze_SkipsRowsWithoutName(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		values  []string
	}{
		{"no name column", []string{"Mon", "Tue"}, []string{"5", "5"}},
		{"blank name", []string{"Name", "Mon"}, []string{"   ", "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := columns.AnalyzeRow(row(tt.headers, tt.values...)); ok {
				t.Error("expected row to be skipped")
			}
		})
	}
}

func TestAnalyze_TrimsName(t *testing.T) {
	a, ok := columns.AnalyzeRow(row([]string{"队员", "周一"}, "  小王 ", "8"))
	if !ok || a.Name != "小王" {
		t.Fatalf("got %q ok=%v", a.Name, ok)
	}
}

func TestAnalyze_PartnerMarker(t *testing.T) {
	headers := []string{"Name", "Mon", "Supply Partner"}

	tests := []struct {
		value       string
		wantMarker  bool
		wantPartner string
	}{
		{"Dee", true, "Dee"},
		{"yes", true, ""},
		{"", false, ""},
		{"no", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			a, _ := columns.AnalyzeRow(row(headers, "Eve", "5", tt.value))
			if a.HasPartner != tt.wantMarker || a.Partner != tt.wantPartner {
				t.Errorf("got marker=%v partner=%q", a.HasPartner, a.Partner)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"12", 12, true},
		{" 12.5 ", 12.5, true},
		{"12.5km", 12.5, true},
		{".5", 0.5, true},
		{"-3", -3, true},
		{"1e3", 1000, true},
		{"km 5", 0, false},
		{"", 0, false},
		{"1e999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := columns.ParseNumber(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLooksLikeMedia(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    bool
	}{
		{"gallery tab", []string{"Timestamp", "Name", "Url"}, true},
		{"gallery with runner column", []string{"Date", "Runner", "Link"}, true},
		{"weekly tab", []string{"Name", "Mon", "Total"}, false},
		{"url but distance", []string{"Timestamp", "Url", "Distance"}, false},
		{"no timestamp", []string{"Name", "Url"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := columns.LooksLikeMedia(tt.headers); got != tt.want {
				t.Errorf("LooksLikeMedia(%v) = %v, want %v", tt.headers, got, tt.want)
			}
		})
	}
}

func TestOrderDays(t *testing.T) {
	records := map[string]float64{
		"Sun":   1,
		"周三":    2,
		"Mon":   3,
		"1/2":   4,
		"12/30": 5,
		"Fri":   6,
	}
	got := columns.OrderDays(records)

	var labels []string
	for _, d := range got {
		labels = append(labels, d.Label)
	}
	want := []string{"Mon", "周三", "Fri", "Sun", "12/30", "1/2"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDayIndex(t *testing.T) {
	tests := map[string]int{
		"Monday":   0,
		"tues":     1,
		"星期三":      2,
		"Thursday": 3,
		"周五":       4,
		"Sat":      5,
		"礼拜天":      6,
		"12/15":    -1,
	}
	for label, want := range tests {
		if got := columns.DayIndex(label); got != want {
			t.Errorf("DayIndex(%q) = %d, want %d", label, got, want)
		}
	}
}
