package models

import "time"

// RawRow is one data row of a tabular export. Headers keeps the column order of the
// export so that "first matching column" rules stay deterministic.
type RawRow struct {
	Headers []string
	Cells   map[string]string
}

// NewRawRow zips headers and values. Missing trailing values become empty strings;
// duplicate headers keep the first value.
func NewRawRow(headers, values []string) RawRow {
	row := RawRow{
		Headers: make([]string, 0, len(headers)),
		Cells:   make(map[string]string, len(headers)),
	}
	for i, h := range headers {
		if _, dup := row.Cells[h]; dup {
			continue
		}
		v := ""
		if i < len(values) {
			v = values[i]
		}
		row.Headers = append(row.Headers, h)
		row.Cells[h] = v
	}
	return row
}

// Get returns the cell under key, or "".
func (r RawRow) Get(key string) string {
	return r.Cells[key]
}

// Equal reports whether two rows have the same headers in the same order and the same values.
func (r RawRow) Equal(o RawRow) bool {
	if len(r.Headers) != len(o.Headers) {
		return false
	}
	for i, h := range r.Headers {
		if o.Headers[i] != h || o.Cells[h] != r.Cells[h] {
			return false
		}
	}
	return true
}

// Tab is one fetched spreadsheet tab: its raw export bytes plus parsed rows.
type Tab struct {
	Name string
	Raw  []byte
	Rows []RawRow
}

// Sheets is the output of one ingestion pass.
type Sheets struct {
	Weeks    map[string][]RawRow
	Media    []RawRow
	MediaTab string
}

// RunnerWeekRecord is one runner's contribution within one week.
type RunnerWeekRecord struct {
	Name                 string             `json:"name"`
	WeekID               string             `json:"weekId"`
	RawDistance          float64            `json:"rawDistance"`
	BonusDistance        float64            `json:"bonusDistance"`
	Distance             float64            `json:"distance"`
	Frequency            int                `json:"frequency"`
	DailyRecords         map[string]float64 `json:"dailyRecords"`
	HasStreak            bool               `json:"hasStreak"`
	IsSupplyStationTeam  bool               `json:"isSupplyStationTeam"`
	SupplyStationPartner string             `json:"supplyStationPartner,omitempty"`
}

// AggregateRunnerRecord is one runner's career line in the Total period.
type AggregateRunnerRecord struct {
	Name                 string  `json:"name"`
	Distance             float64 `json:"distance"`
	StreakCount          int     `json:"streakCount"`
	IsPerfect            bool    `json:"isPerfect"`
	IsSupplyStationTeam  bool    `json:"isSupplyStationTeam"`
	SupplyStationPartner string  `json:"supplyStationPartner,omitempty"`
	BonusDistance        float64 `json:"bonusDistance"`
}

// Period is either the aggregate view (WeekID empty, Totals set) or one week (Runners set).
type Period struct {
	Label   string                  `json:"label"`
	WeekID  string                  `json:"weekId,omitempty"`
	Start   *time.Time              `json:"start,omitempty"`
	End     *time.Time              `json:"end,omitempty"`
	Runners []RunnerWeekRecord      `json:"runners,omitempty"`
	Totals  []AggregateRunnerRecord `json:"totals,omitempty"`
}

// IsAggregate reports whether p is the Total period.
func (p Period) IsAggregate() bool {
	return p.WeekID == ""
}

// SupplyStationTrigger is the runner-week that first pushed the cumulative distance over the threshold.
type SupplyStationTrigger struct {
	RunnerName string  `json:"runnerName"`
	WeekID     string  `json:"weekId"`
	Cumulative float64 `json:"cumulative"`
}

// Pairing is a persisted supply-station team.
type Pairing struct {
	WeekID    string    `json:"weekId"`
	Runner    string    `json:"runner"`
	Partner   string    `json:"partner"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Has reports whether name is one of the two paired runners.
func (p Pairing) Has(name string) bool {
	return p.Runner == name || p.Partner == name
}

// Other returns the teammate of name.
func (p Pairing) Other(name string) string {
	if p.Runner == name {
		return p.Partner
	}
	return p.Runner
}

// DrawResult is a write-once lucky draw for one week.
type DrawResult struct {
	ID      string    `json:"id,omitempty"`
	WeekID  string    `json:"weekId"`
	Winners []string  `json:"winners"`
	Task    string    `json:"task"`
	Makeup  bool      `json:"makeup,omitempty"`
	DrawnAt time.Time `json:"drawnAt,omitempty"`
}

// DrawState is the lucky-draw control state.
type DrawState string

const (
	DrawLockedWaiting   DrawState = "LOCKED_WAITING"
	DrawOpenNormal      DrawState = "OPEN_NORMAL"
	DrawOpenMakeup      DrawState = "OPEN_MAKEUP"
	DrawLockedCompleted DrawState = "LOCKED_COMPLETED"
)

// Open reports whether a draw may be performed in this state.
func (s DrawState) Open() bool {
	return s == DrawOpenNormal || s == DrawOpenMakeup
}

// DrawStatus is what the draw control renders.
type DrawStatus struct {
	State          DrawState   `json:"state"`
	TargetWeekID   string      `json:"targetWeekId"`
	CalendarWeekID string      `json:"calendarWeekId"`
	Result         *DrawResult `json:"result,omitempty"`
	Displayed      *DrawResult `json:"displayed,omitempty"`
	Eligible       []string    `json:"eligible"`
}

// Summary holds the scalar numbers shown above the leaderboard.
type Summary struct {
	TotalDistance         float64  `json:"totalDistance"`
	DistanceThisWeek      float64  `json:"distanceThisWeek"`
	ActiveRunnersThisWeek int      `json:"activeRunnersThisWeek"`
	CurrentWeekID         string   `json:"currentWeekId"`
	EligibleRunners       []string `json:"eligibleRunners"`
	WeeksProcessed        int      `json:"weeksProcessed"`
}

// LatLng is a point on the route.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Progress is the team's position toward the goal.
type Progress struct {
	GoalKm        float64 `json:"goalKm"`
	TotalKm       float64 `json:"totalKm"`
	RemainingKm   float64 `json:"remainingKm"`
	Percent       float64 `json:"percent"`
	Position      LatLng  `json:"position"`
	Location      string  `json:"location"`
	SupplyReached bool    `json:"supplyReached"`
}

// GalleryItem is one uploaded photo or video.
type GalleryItem struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp,omitempty"`
	IsVideo   bool   `json:"isVideo"`
}

// RunnerDetail is one runner's history, latest week first.
type RunnerDetail struct {
	Name       string                 `json:"name"`
	Total      float64                `json:"total"`
	ActiveDays int                    `json:"activeDays"`
	Weeks      []RunnerWeek           `json:"weeks"`
	Aggregate  *AggregateRunnerRecord `json:"aggregate,omitempty"`
}

// RunnerWeek is a week of RunnerDetail with its days in calendar order.
type RunnerWeek struct {
	WeekID string           `json:"weekId"`
	Label  string           `json:"label"`
	Record RunnerWeekRecord `json:"record"`
	Days   []DayEntry       `json:"days"`
}

// DayEntry is one daily log cell.
type DayEntry struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Snapshot is the last good result of a refresh.
type Snapshot struct {
	Periods     []Period              `json:"periods"`
	Summary     Summary               `json:"summary"`
	Progress    Progress              `json:"progress"`
	Gallery     []GalleryItem         `json:"gallery"`
	Trigger     *SupplyStationTrigger `json:"trigger,omitempty"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

// RefreshStatus is shown as the non-blocking banner.
type RefreshStatus struct {
	Refreshing    bool      `json:"refreshing"`
	LastRefreshed time.Time `json:"lastRefreshed,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
