// Package telegram is the bot-side messaging channel. It is used only for
// user-facing confirmations (a referrer learning their invite was
// credited); nothing in the sync pipeline depends on it succeeding.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"miniapp-sync-backend/internal/common/logger"
)

const apiBase = "https://api.telegram.org"

type Client struct {
	httpClient *http.Client
	token      string
}

// RPSError signals Telegram's rate limit was hit. It is classified as
// transient by the containment layer.
type RPSError struct {
	Msg string
}

func (e *RPSError) Error() string {
	return e.Msg
}

// Response is the generic Bot API envelope.
type Response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token: token,
	}
}

// SendMessage delivers a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}

	resp, err := c.call(ctx, "sendMessage", params)
	if err != nil {
		return err
	}
	if !resp.Ok {
		if resp.ErrorCode == http.StatusTooManyRequests {
			return &RPSError{Msg: resp.Description}
		}
		return fmt.Errorf("telegram API error: %s", resp.Description)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (*Response, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", apiBase, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = params.Encode()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram response read failed: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("telegram response decode failed: %w", err)
	}

	logger.Debug().
		Str("method", method).
		Bool("ok", resp.Ok).
		Msg("telegram API call")

	return &resp, nil
}
