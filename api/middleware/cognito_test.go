package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/gofiber/fiber/v2"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://issuer.example"
	testClientID = "client-123"
	testKeyID    = "test-kid"
)

type jwksFixture struct {
	priv *rsa.PrivateKey
	srv  *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := jwk.FromRaw(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, testKeyID))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(set))
	}))
	t.Cleanup(srv.Close)

	return &jwksFixture{priv: priv, srv: srv}
}

func (f *jwksFixture) sign(t *testing.T, claims map[string]any) string {
	t.Helper()

	tok := jwt.New()
	base := map[string]any{
		jwt.IssuerKey:    testIssuer,
		"token_use":      "access",
		"client_id":      testClientID,
		"sub":            "user-123",
		"username":       "imhotep",
		"scope":          "read:all",
		"cognito:groups": []string{"admins"},
	}
	for k, v := range claims {
		base[k] = v
	}
	for k, v := range base {
		require.NoError(t, tok.Set(k, v))
	}

	hdrs := jws.NewHeaders()
	require.NoError(t, hdrs.Set(jws.KeyIDKey, testKeyID))

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, f.priv, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)

	return string(signed)
}

func newTestVerifier(t *testing.T, jwksURL string) *CognitoVerifier {
	t.Helper()

	v, err := NewCognitoVerifier(
		&core.CognitoConfig{AppClientID: testClientID},
		CognitoOptions{Issuer: testIssuer, JWKSURL: jwksURL},
	)
	require.NoError(t, err)
	return v
}

func cognitoApp(v *CognitoVerifier) *fiber.App {
	app := fiber.New()
	app.Use(v.FiberMiddleware())
	app.All("/ok", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sub":      c.Locals("sub"),
			"username": c.Locals("username"),
			"scope":    c.Locals("scope"),
			"groups":   c.Locals("groups"),
		})
	})
	return app
}

func TestNewCognitoVerifier_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  core.CognitoConfig
		want string
	}{
		{"missing client", core.CognitoConfig{Region: "us-east-1", UserPoolID: "pool"}, "AppClientID is required"},
		{"missing region", core.CognitoConfig{AppClientID: "cid"}, "Region is required"},
		{"missing pool", core.CognitoConfig{Region: "us-east-1", AppClientID: "cid"}, "UserPoolID is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCognitoVerifier(&tt.cfg, CognitoOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestNewCognitoVerifier_DerivesIssuerAndJWKSURL(t *testing.T) {
	v, err := NewCognitoVerifier(&core.CognitoConfig{
		Region:      "us-east-1",
		UserPoolID:  "us-east-1_ABC123",
		AppClientID: testClientID,
	}, CognitoOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_ABC123", v.issuer)
	assert.Equal(t, "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_ABC123/.well-known/jwks.json", v.jwksURL)
	assert.Equal(t, testClientID, v.clientID)
	assert.NotNil(t, v.cache)
}

func TestFiberMiddleware_Rejections(t *testing.T) {
	fx := newJWKSFixture(t)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"missing header", func(*testing.T) string { return "" }},
		{"not a jwt", func(*testing.T) string { return "definitely-not-a-jwt" }},
		{"wrong issuer", func(t *testing.T) string {
			return fx.sign(t, map[string]any{jwt.IssuerKey: "https://different-issuer.example"})
		}},
		{"id token", func(t *testing.T) string {
			return fx.sign(t, map[string]any{"token_use": "id"})
		}},
		{"other client", func(t *testing.T) string {
			return fx.sign(t, map[string]any{"client_id": "other-client"})
		}},
	}

	app := cognitoApp(newTestVerifier(t, fx.srv.URL))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tok := tt.token(t); tok != "" {
				req.Header.Set(accessTokenHeader, tok)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestFiberMiddleware_JWKSFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	app := cognitoApp(newTestVerifier(t, srv.URL))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(accessTokenHeader, "not-a-jwt")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestFiberMiddleware_PreflightSkipsAuth(t *testing.T) {
	fx := newJWKSFixture(t)
	app := cognitoApp(newTestVerifier(t, fx.srv.URL))

	resp, err := app.Test(httptest.NewRequest(http.MethodOptions, "/ok", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestFiberMiddleware_ValidToken_SetsLocals(t *testing.T) {
	fx := newJWKSFixture(t)
	app := cognitoApp(newTestVerifier(t, fx.srv.URL))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(accessTokenHeader, fx.sign(t, nil))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, "user-123", got["sub"])
	assert.Equal(t, "imhotep", got["username"])
	assert.Equal(t, "read:all", got["scope"])

	groups, ok := got["groups"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, groups)
	assert.Equal(t, "admins", groups[0])
}
