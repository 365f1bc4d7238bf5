// Package sender delivers certificate notifications over the external
// mailer's HTTP API.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	regmodels "conexus/internal/registration/models"
)

// HTTPSender posts one certificate-mail request per target to the external
// mailer service.
type HTTPSender struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSender(baseURL string) *HTTPSender {
	return &HTTPSender{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type sendPayload struct {
	RegistrationID string `json:"registration_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

func (s *HTTPSender) Send(ctx context.Context, target *regmodels.Registration) error {
	payload, err := json.Marshal(sendPayload{
		RegistrationID: target.ID.String(),
		Name:           target.OwnerName,
		Email:          target.OwnerEmail,
	})
	if err != nil {
		return fmt.Errorf("encode send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/send-certificate", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send certificate mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send certificate mail: mailer returned %d", resp.StatusCode)
	}
	return nil
}
