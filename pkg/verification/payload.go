package verification

import "encoding/json"

const (
	locale          = "en-US"
	submissionOptIn = "By submitting the personal information above, I acknowledge that my personal information is being collected under the privacy policy of the business from which I am seeking a discount"
)

// Feature flags the provider's hosted form sends with personal info.
var submissionFlags = mustJSON(map[string]any{
	"collect-info-step-email-first":               "default",
	"doc-upload-considerations":                   "default",
	"doc-upload-may24":                            "default",
	"doc-upload-redesign-use-legacy-message-keys": false,
	"docUpload-assertion-checklist":               "default",
	"font-size":                                   "default",
	"include-cvec-field-france-student":           "not-labeled-optional",
})

type personalInfoRequest struct {
	FirstName             string               `json:"firstName"`
	LastName              string               `json:"lastName"`
	BirthDate             string               `json:"birthDate"`
	Email                 string               `json:"email"`
	PhoneNumber           string               `json:"phoneNumber"`
	Organization          organizationRef      `json:"organization"`
	DeviceFingerprintHash string               `json:"deviceFingerprintHash"`
	Locale                string               `json:"locale"`
	Metadata              personalInfoMetadata `json:"metadata"`
}

type organizationRef struct {
	ID         int    `json:"id"`
	IDExtended string `json:"idExtended"`
	Name       string `json:"name"`
}

type personalInfoMetadata struct {
	MarketConsentValue bool   `json:"marketConsentValue"`
	RefererURL         string `json:"refererUrl"`
	VerificationID     string `json:"verificationId"`
	// JSON encoded, the provider expects a string here.
	Flags           string `json:"flags"`
	SubmissionOptIn string `json:"submissionOptIn"`
}

type docUploadRequest struct {
	Files []docUploadFile `json:"files"`
}

type docUploadFile struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int    `json:"fileSize"`
}

type docUploadResponse struct {
	Documents []struct {
		UploadURL string `json:"uploadUrl"`
	} `json:"documents"`
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
