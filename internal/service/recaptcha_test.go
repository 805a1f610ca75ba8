package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"unicms/backend/internal/network"
	"unicms/backend/internal/service"
)

// verifyTransport reroutes the siteverify call to a local test server.
type verifyTransport struct {
	target string
}

func (t *verifyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := url.Parse(t.target)
	if err != nil {
		return nil, err
	}
	redirected := req.Clone(req.Context())
	redirected.URL.Scheme = target.Scheme
	redirected.URL.Host = target.Host
	return http.DefaultTransport.RoundTrip(redirected)
}

func newVerifier(t *testing.T, handler http.HandlerFunc) service.RecaptchaVerifier {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := &http.Client{Transport: &verifyTransport{target: server.URL}}
	return service.NewRecaptchaVerifier("secret", network.NewClientFactoryForTest(client))
}

func TestRecaptchaVerifier_Success(t *testing.T) {
	verifier := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "secret", r.Form.Get("secret"))
		require.Equal(t, "good-token", r.Form.Get("response"))
		require.Equal(t, "198.51.100.7", r.Form.Get("remoteip"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	require.NoError(t, verifier.Verify(context.Background(), "good-token", "198.51.100.7"))
}

func TestRecaptchaVerifier_Failure(t *testing.T) {
	verifier := newVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	})

	err := verifier.Verify(context.Background(), "bad-token", "")
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestRecaptchaVerifier_EmptyToken(t *testing.T) {
	verifier := service.NewRecaptchaVerifier("secret", network.NewClientFactory(""))

	err := verifier.Verify(context.Background(), "   ", "")
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestNoopVerifier_AcceptsEverything(t *testing.T) {
	verifier := service.NewNoopVerifier()
	require.NoError(t, verifier.Verify(context.Background(), "", ""))
}
