// Package settings contains user preferences and the navigable hub views.
package settings

// Settings are the user preferences persisted under their own key.
type Settings struct {
	Theme         string `json:"theme" validate:"oneof=light dark"`
	Notifications bool   `json:"notifications"`
	CalendarView  string `json:"calendarView" validate:"oneof=month week day"`
	Language      string `json:"language" validate:"required,bcp47_language_tag"`
}

// Defaults returns the settings used for every missing field.
func Defaults() Settings {
	return Settings{
		Theme:         "light",
		Notifications: true,
		CalendarView:  "month",
		Language:      "en",
	}
}

// Partial is a settings object where any field may be absent. It is the
// shape read back from storage and the shape of an update.
type Partial struct {
	Theme         *string `json:"theme,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
	CalendarView  *string `json:"calendarView,omitempty"`
	Language      *string `json:"language,omitempty"`
}

// Apply overlays the present fields of p onto s.
func (p Partial) Apply(s Settings) Settings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.CalendarView != nil {
		s.CalendarView = *p.CalendarView
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	return s
}

// WithDefaults fills every absent field of p from Defaults.
func WithDefaults(p Partial) Settings {
	return p.Apply(Defaults())
}

// View is the section of the hub currently on screen.
type View string

const (
	ViewOverview    View = "overview"
	ViewGrades      View = "grades"
	ViewAssignments View = "assignments"
	ViewCalendar    View = "calendar"
	ViewTraining    View = "training"
)

// IsValid checks if the view is known.
func (v View) IsValid() bool {
	switch v {
	case ViewOverview, ViewGrades, ViewAssignments, ViewCalendar, ViewTraining:
		return true
	}
	return false
}
