package models

// NotificationSettings controls how users are notified.
type NotificationSettings struct {
	Email        bool `json:"email"`
	Desktop      bool `json:"desktop"`
	TaskReminder bool `json:"task_reminder"`
}

// DisplaySettings controls UI presentation defaults.
type DisplaySettings struct {
	Theme        string `json:"theme"` // "light" or "dark"
	Language     string `json:"language"`
	TasksPerPage int    `json:"tasks_per_page"`
}

// AppSettings is the application-wide configuration editable by admins.
type AppSettings struct {
	Categories         []string             `json:"categories"`
	ProjectName        string               `json:"project_name"`
	ProjectDescription string               `json:"project_description"`
	Notifications      NotificationSettings `json:"notifications"`
	Display            DisplaySettings      `json:"display"`
}

// DefaultAppSettings returns the settings a fresh installation starts with.
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		Categories:         []string{"planning", "development", "design", "testing", "documentation", "meeting", "other"},
		ProjectName:        "NullTasker Project",
		ProjectDescription: "Team task tracking",
		Notifications: NotificationSettings{
			Email:        true,
			TaskReminder: true,
		},
		Display: DisplaySettings{
			Theme:        "light",
			Language:     "en",
			TasksPerPage: 20,
		},
	}
}
