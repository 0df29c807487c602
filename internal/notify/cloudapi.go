package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gymflow/internal/config"
)

// CloudAPIClient sends messages through the Meta WhatsApp Cloud API.
type CloudAPIClient struct {
	baseURL    string
	token      string
	phoneID    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewCloudAPIClient(cfg config.WhatsAppConfig, httpClient *http.Client) *CloudAPIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	perSecond := cfg.SendsPerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	return &CloudAPIClient{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.Token,
		phoneID:    cfg.PhoneID,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (c *CloudAPIClient) Configured() bool {
	return c.baseURL != "" && c.token != "" && c.phoneID != ""
}

type cloudTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (c *CloudAPIClient) SendText(ctx context.Context, phone, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := cloudTextMessage{MessagingProduct: "whatsapp", To: phone, Type: "text"}
	msg.Text.Body = body
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
