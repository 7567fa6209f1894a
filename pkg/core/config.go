package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultConfigEnvironment = "development"
	defaultConfigPort        = 8000
	defaultSkipAuth          = true
	defaultBodyLimit         = 8 * 1024 * 1024

	defaultOtelDisable          = false
	defaultOTLPExporterEndpoint = "localhost:4317"
	defaultOTLPInsecure         = false

	defaultCognitoRegion      = "us-east-1"
	defaultCognitoUserPoolID  = "UNSET"
	defaultCognitoAppClientID = "UNSET"

	defaultRedisAddr     = "localhost:6379"
	defaultRedisPassword = ""
	defaultRedisDB       = 0
	defaultRedisDisable  = false

	defaultProviderProgramID     = "67c8c14f5f17a83b745e3f82"
	defaultProviderBaseURL       = "https://services.sheerid.com"
	defaultProviderStatusBaseURL = "https://my.sheerid.com"
	defaultProviderTimeout       = 30 * time.Second

	defaultHCaptchaVerifyURL  = "https://hcaptcha.com/siteverify"
	defaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

	defaultMaxFileSize    = 1 * 1024 * 1024
	defaultUploadFileName = "student_card.png"
	defaultUploadMimeType = "image/png"

	defaultPollMaxAttempts = 3
	defaultPollInterval    = 3 * time.Second

	defaultVerifyTimeout = 2 * time.Minute
	defaultMaxLogEntries = 500
)

// LogEntryOverhead bounds the journal entries a run writes besides its status checks.
const LogEntryOverhead = 40

func DefaultConfig() Config {
	return Config{
		Environment: defaultConfigEnvironment,
		Port:        defaultConfigPort,
		SkipAuth:    defaultSkipAuth,
		BodyLimit:   defaultBodyLimit,
		Otel: OtelConfig{
			Disable: defaultOtelDisable,
			OtlpExporter: OtlpConfig{
				Endpoint: defaultOTLPExporterEndpoint,
				Insecure: defaultOTLPInsecure,
			},
		},
		Cognito: CognitoConfig{
			Region:      defaultCognitoRegion,
			UserPoolID:  defaultCognitoUserPoolID,
			AppClientID: defaultCognitoAppClientID,
		},
		Redis: RedisConfig{
			Addr:     defaultRedisAddr,
			Password: defaultRedisPassword,
			DB:       defaultRedisDB,
			Disable:  defaultRedisDisable,
		},
		Provider: ProviderConfig{
			ProgramID:     defaultProviderProgramID,
			BaseURL:       defaultProviderBaseURL,
			StatusBaseURL: defaultProviderStatusBaseURL,
			Timeout:       defaultProviderTimeout,
		},
		Captcha: CaptchaConfig{
			HCaptchaVerifyURL:  defaultHCaptchaVerifyURL,
			TurnstileVerifyURL: defaultTurnstileVerifyURL,
		},
		Upload: UploadConfig{
			MaxFileSize: defaultMaxFileSize,
			FileName:    defaultUploadFileName,
			MimeType:    defaultUploadMimeType,
		},
		Polling: PollingConfig{
			MaxAttempts: defaultPollMaxAttempts,
			Interval:    defaultPollInterval,
		},
		VerifyTimeout: defaultVerifyTimeout,
		MaxLogEntries: defaultMaxLogEntries,
	}
}

func NewConfig(options ...func(*Config)) Config {
	config := DefaultConfig()
	for _, opt := range options {
		opt(&config)
	}
	return config
}

func NewConfigFromEnv(options ...func(*Config)) (Config, error) {
	config := DefaultConfig()
	err := errors.Join(
		setFromEnv(&config.Environment, "ENVIRONMENT"),
		setFromEnv(&config.Port, "PORT"),
		setFromEnv(&config.SkipAuth, "SKIP_AUTH"),
		setFromEnv(&config.BodyLimit, "BODY_LIMIT"),
		setFromEnv(&config.Otel.Disable, "OTEL_DISABLE"),
		setFromEnv(&config.Otel.OtlpExporter.Endpoint, "OTEL_OTLP_EXPORTER_ENDPOINT"),
		setFromEnv(&config.Otel.OtlpExporter.Insecure, "OTEL_OTLP_EXPORTER_INSECURE"),
		setFromEnv(&config.Cognito.Region, "COGNITO_REGION"),
		setFromEnv(&config.Cognito.UserPoolID, "COGNITO_USER_POOL_ID"),
		setFromEnv(&config.Cognito.AppClientID, "COGNITO_APP_CLIENT_ID"),
		setFromEnv(&config.Redis.Addr, "REDIS_ADDR"),
		setFromEnv(&config.Redis.Password, "REDIS_PASSWORD"),
		setFromEnv(&config.Redis.DB, "REDIS_DB"),
		setFromEnv(&config.Redis.Disable, "REDIS_DISABLE"),
		setFromEnv(&config.Provider.ProgramID, "PROVIDER_PROGRAM_ID"),
		setFromEnv(&config.Provider.BaseURL, "PROVIDER_BASE_URL"),
		setFromEnv(&config.Provider.StatusBaseURL, "PROVIDER_STATUS_BASE_URL"),
		setFromEnv(&config.Provider.AccessToken, "PROVIDER_ACCESS_TOKEN"),
		setFromEnv(&config.Provider.TokenURL, "PROVIDER_TOKEN_URL"),
		setFromEnv(&config.Provider.ClientID, "PROVIDER_CLIENT_ID"),
		setFromEnv(&config.Provider.ClientSecret, "PROVIDER_CLIENT_SECRET"),
		setFromEnv(&config.Provider.Timeout, "PROVIDER_TIMEOUT"),
		setFromEnv(&config.Captcha.HCaptchaSecret, "HCAPTCHA_SECRET"),
		setFromEnv(&config.Captcha.HCaptchaVerifyURL, "HCAPTCHA_VERIFY_URL"),
		setFromEnv(&config.Captcha.TurnstileSecret, "TURNSTILE_SECRET"),
		setFromEnv(&config.Captcha.TurnstileVerifyURL, "TURNSTILE_VERIFY_URL"),
		setFromEnv(&config.Upload.MaxFileSize, "MAX_FILE_SIZE"),
		setFromEnv(&config.Upload.FileName, "UPLOAD_FILE_NAME"),
		setFromEnv(&config.Upload.MimeType, "UPLOAD_MIME_TYPE"),
		setFromEnv(&config.Polling.MaxAttempts, "POLL_MAX_ATTEMPTS"),
		setFromEnv(&config.Polling.Interval, "POLL_INTERVAL"),
		setFromEnv(&config.VerifyTimeout, "VERIFY_TIMEOUT"),
		setFromEnv(&config.MaxLogEntries, "MAX_LOG_ENTRIES"),
		setFromEnv(&config.OrganizationsFile, "ORGANIZATIONS_FILE"),
	)

	for _, opt := range options {
		opt(&config)
	}

	return config, errors.Join(err, config.Validate())
}

// Validate reports settings the verification flow cannot run with.
func (c *Config) Validate() error {
	var errs error
	if c.Polling.MaxAttempts <= 0 {
		errs = errors.Join(errs, errors.New("POLL_MAX_ATTEMPTS must be positive"))
	}
	if c.Polling.Interval < 0 {
		errs = errors.Join(errs, errors.New("POLL_INTERVAL must not be negative"))
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = errors.Join(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	if c.Provider.BaseURL == "" {
		errs = errors.Join(errs, errors.New("PROVIDER_BASE_URL is required"))
	}
	if c.Provider.StatusBaseURL == "" {
		errs = errors.Join(errs, errors.New("PROVIDER_STATUS_BASE_URL is required"))
	}
	if minEntries := LogEntryOverhead + c.Polling.MaxAttempts; c.MaxLogEntries < minEntries {
		errs = errors.Join(errs, fmt.Errorf("MAX_LOG_ENTRIES must be at least %d for POLL_MAX_ATTEMPTS=%d", minEntries, c.Polling.MaxAttempts))
	}
	if c.Provider.TokenURL != "" && c.Provider.ClientID == "" {
		errs = errors.Join(errs, errors.New("PROVIDER_CLIENT_ID is required with PROVIDER_TOKEN_URL"))
	}
	return errs
}

func LoadEnv(environment ...string) error {
	filenames := []string{
		".env.local",
		".env",
	}

	env := getEnv("ENVIRONMENT", DefaultConfig().Environment)
	if len(environment) > 0 {
		env = environment[0]
	}

	if env != "" {
		file := ".env." + env + ".local"
		filenames = append([]string{file}, filenames...)
	}

	var errs error

	for _, filename := range filenames {
		err := loadEnvFile(filename)
		if err != nil {
			errs = errors.Join(
				errs,
				fmt.Errorf("error loading %s: %w", filename, err),
			)
		}
	}

	return errs
}
