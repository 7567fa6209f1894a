package captcha

import (
	"bytes"
	"mime/multipart"

	"github.com/DSACMS/student-verification-api/pkg/core"
)

// NewTurnstile verifies Cloudflare Turnstile tokens, posted as multipart form data.
func NewTurnstile(cfg *core.CaptchaConfig, opts Options) Verifier {
	return newService(vendorTurnstile, cfg.TurnstileSecret, cfg.TurnstileVerifyURL, encodeMultipart, opts)
}

func encodeMultipart(secret, token, remoteIP string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"secret", secret},
		{"response", token},
	}
	if remoteIP != "" {
		fields = append(fields, [2]string{"remoteip", remoteIP})
	}

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
