package network

import (
	"net/http"
	"net/url"
	"time"
)

// ClientFactory creates outbound HTTP clients with optional proxy
// configuration. Services hold a factory instead of a bare client so tests can
// inject transports.
type ClientFactory struct {
	proxyURL       string
	testHTTPClient *http.Client // For testing only
}

// NewClientFactory creates a new client factory. proxyURL may be empty.
func NewClientFactory(proxyURL string) *ClientFactory {
	return &ClientFactory{proxyURL: proxyURL}
}

// NewClientFactoryForTest creates a client factory that always returns the
// given http.Client. This is only for use in tests.
func NewClientFactoryForTest(client *http.Client) *ClientFactory {
	return &ClientFactory{testHTTPClient: client}
}

// NewHTTPClient creates a standard http.Client with the factory's proxy
// configuration and the given timeout.
func (f *ClientFactory) NewHTTPClient(timeout time.Duration) *http.Client {
	if f.testHTTPClient != nil {
		return f.testHTTPClient
	}

	client := &http.Client{Timeout: timeout}
	if f.proxyURL != "" {
		if parsed, err := url.Parse(f.proxyURL); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
		}
	}
	return client
}
