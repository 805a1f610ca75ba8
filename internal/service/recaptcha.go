//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"unicms/backend/internal/network"
	"unicms/backend/pkg/logger"
)

const (
	recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	recaptchaTimeout   = 10 * time.Second
)

// RecaptchaVerifier checks a client-supplied captcha token.
type RecaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type recaptchaVerifier struct {
	secret  string
	clients *network.ClientFactory
}

func NewRecaptchaVerifier(secret string, clients *network.ClientFactory) RecaptchaVerifier {
	return &recaptchaVerifier{secret: secret, clients: clients}
}

// noopVerifier accepts every token. Used when captcha verification is
// disabled in configuration.
type noopVerifier struct{}

func NewNoopVerifier() RecaptchaVerifier { return noopVerifier{} }

func (noopVerifier) Verify(ctx context.Context, token, remoteIP string) error { return nil }

func (v *recaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ValidationErrors{"recaptchaToken": "captcha verification is required"}
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recaptchaVerifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.clients.NewHTTPClient(recaptchaTimeout).Do(req)
	if err != nil {
		return fmt.Errorf("verify captcha: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode captcha response: %w", err)
	}

	if !payload.Success {
		logger.Warn("captcha verification failed", "errorCodes", payload.ErrorCodes, "remoteIP", remoteIP)
		return ValidationErrors{"recaptchaToken": "captcha verification failed"}
	}
	return nil
}
