package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ExpoConfig struct {
	URL string // push endpoint, normally https://exp.host/--/api/v2/push/send
}

// Expo sends pushes through the Expo push service. Responder apps
// register an ExponentPushToken with their profile.
type Expo struct {
	cfg ExpoConfig
	cli *http.Client
}

func NewExpo(cfg ExpoConfig) *Expo {
	return &Expo{cfg: cfg, cli: &http.Client{Timeout: 10 * time.Second}}
}

// IsExpoPushToken reports whether the token has the Expo token shape.
func IsExpoPushToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") && strings.HasSuffix(token, "]")
}

func (e *Expo) Send(ctx context.Context, push Push) error {
	if !IsExpoPushToken(push.Token) {
		return fmt.Errorf("invalid expo push token: %q", push.Token)
	}

	payload := []map[string]interface{}{{
		"to":       push.Token,
		"sound":    "default",
		"title":    push.Title,
		"body":     push.Body,
		"data":     push.Data,
		"priority": "high",
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo push returned %d", resp.StatusCode)
	}
	return nil
}
