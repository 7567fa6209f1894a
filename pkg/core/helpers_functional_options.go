package core

import "time"

func WithRedisAddr(addr string) func(*Config) {
	return func(c *Config) {
		c.Redis.Addr = addr
	}
}

func WithRedisDisable(value ...bool) func(*Config) {
	val := true
	if len(value) > 0 {
		val = value[0]
	}

	return func(c *Config) {
		c.Redis.Disable = val
	}
}

func WithEnvironment(environment string) func(*Config) {
	return func(c *Config) {
		c.Environment = environment
	}
}

func WithPort(port int) func(*Config) {
	return func(c *Config) {
		c.Port = port
	}
}

func WithSkipAuth(value ...bool) func(*Config) {
	val := true
	if len(value) > 0 {
		val = value[0]
	}

	return func(c *Config) {
		c.SkipAuth = val
	}
}

func WithOtelDisable(value ...bool) func(*Config) {
	val := true
	if len(value) > 0 {
		val = value[0]
	}

	return func(c *Config) {
		c.Otel.Disable = val
	}
}

func WithProviderURLs(baseURL, statusBaseURL string) func(*Config) {
	return func(c *Config) {
		c.Provider.BaseURL = baseURL
		c.Provider.StatusBaseURL = statusBaseURL
	}
}

func WithTurnstile(secret, verifyURL string) func(*Config) {
	return func(c *Config) {
		c.Captcha.TurnstileSecret = secret
		if verifyURL != "" {
			c.Captcha.TurnstileVerifyURL = verifyURL
		}
	}
}

func WithHCaptcha(secret, verifyURL string) func(*Config) {
	return func(c *Config) {
		c.Captcha.HCaptchaSecret = secret
		if verifyURL != "" {
			c.Captcha.HCaptchaVerifyURL = verifyURL
		}
	}
}

func WithMaxFileSize(size int64) func(*Config) {
	return func(c *Config) {
		c.Upload.MaxFileSize = size
	}
}

func WithPolling(maxAttempts int, interval time.Duration) func(*Config) {
	return func(c *Config) {
		c.Polling.MaxAttempts = maxAttempts
		c.Polling.Interval = interval
	}
}

func WithCognito(region, userPoolID, appClientID string) func(*Config) {
	return func(c *Config) {
		c.Cognito.Region = region
		c.Cognito.UserPoolID = userPoolID
		c.Cognito.AppClientID = appClientID
	}
}
