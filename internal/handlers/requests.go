package handlers

// SettingsUpdateRequest represents a request to update settings. Absent fields are left alone.
type SettingsUpdateRequest struct {
	MakeupWeekID    *string `json:"makeup_week_id"`
	BaseURL         *string `json:"base_url"`
	ResetMakeupWeek bool    `json:"reset_makeup_week"`
}
