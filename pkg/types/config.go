package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// DynamoDB tables
	HelpRequestsTable string `envconfig:"HELP_REQUESTS_TABLE_NAME" default:"HelpRequests"`
	OffersTable       string `envconfig:"OFFERS_TABLE_NAME" default:"HelpOffers"`
	SettingsTable     string `envconfig:"NOTIF_TABLE_NAME" default:"NotificationSettings"`

	// SNS topics (empty disables the corresponding notifications)
	NewRequestsTopicARN string `envconfig:"SNS_NEW_REQUESTS_TOPIC_ARN"`
	NewOffersTopicARN   string `envconfig:"SNS_NEW_OFFERS_TOPIC_ARN"`

	// Image storage
	ImageBucket         string `envconfig:"BUCKET_NAME"`
	UploadURLExpiresSec uint   `envconfig:"UPLOAD_URL_EXPIRES_SECONDS" default:"300"`

	// Nearby search
	DefaultRadiusKm float64 `envconfig:"DEFAULT_RADIUS_KM" default:"10"`
	MaxRadiusKm     float64 `envconfig:"MAX_RADIUS_KM" default:"50"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`
}
