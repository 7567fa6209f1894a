package core

import "time"

type Config struct {
	Cognito           CognitoConfig
	Environment       string
	Otel              OtelConfig
	Port              int
	SkipAuth          bool
	BodyLimit         int
	Redis             RedisConfig
	Provider          ProviderConfig
	Captcha           CaptchaConfig
	Upload            UploadConfig
	Polling           PollingConfig
	VerifyTimeout     time.Duration
	MaxLogEntries     int
	OrganizationsFile string
}

type OtlpConfig struct {
	Endpoint string
	Insecure bool
}

type OtelConfig struct {
	OtlpExporter OtlpConfig
	Disable      bool
}

type CognitoConfig struct {
	Region      string
	UserPoolID  string
	AppClientID string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Disable  bool
}

// ProviderConfig describes the SheerID hosts the verification steps talk to.
type ProviderConfig struct {
	ProgramID string
	// Step endpoints live here, e.g. https://services.sheerid.com
	BaseURL string
	// Status reads are served from a separate host, e.g. https://my.sheerid.com
	StatusBaseURL string
	// Optional bearer token sent on every provider call.
	AccessToken string
	// Client credentials grant, used instead of AccessToken when TokenURL is set.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// CaptchaConfig holds the captcha secrets. An empty secret disables that check.
type CaptchaConfig struct {
	HCaptchaSecret     string
	HCaptchaVerifyURL  string
	TurnstileSecret    string
	TurnstileVerifyURL string
}

type UploadConfig struct {
	MaxFileSize int64
	FileName    string
	MimeType    string
}

type PollingConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

func (c CaptchaConfig) HCaptchaEnabled() bool {
	return c.HCaptchaSecret != ""
}

func (c CaptchaConfig) TurnstileEnabled() bool {
	return c.TurnstileSecret != ""
}
