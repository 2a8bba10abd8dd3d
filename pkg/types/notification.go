package types

const (
	RoleVolunteer  = "VOLUNTEER"
	RoleHelpSeeker = "HELP_SEEKER"
)

// NotificationSetting is the per-user delivery preference record, keyed by
// user_id. A missing record means notifications are enabled.
type NotificationSetting struct {
	UserID        string `json:"user_id" dynamodbav:"user_id"`
	NotifyEnabled bool   `json:"notify_enabled" dynamodbav:"notify_enabled"`
	Email         string `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Role          string `json:"role,omitempty" dynamodbav:"role,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty" dynamodbav:"updated_at,omitempty"`
}
