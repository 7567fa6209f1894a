package captcha

import (
	"net/url"

	"github.com/DSACMS/student-verification-api/pkg/core"
)

const contentTypeForm = "application/x-www-form-urlencoded"

// NewHCaptcha verifies hCaptcha tokens, posted url-encoded.
func NewHCaptcha(cfg *core.CaptchaConfig, opts Options) Verifier {
	return newService(vendorHCaptcha, cfg.HCaptchaSecret, cfg.HCaptchaVerifyURL, encodeForm, opts)
}

func encodeForm(secret, token, remoteIP string) ([]byte, string, error) {
	form := url.Values{}
	form.Set("response", token)
	form.Set("secret", secret)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	return []byte(form.Encode()), contentTypeForm, nil
}
