package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// MembershipClient is the HTTP adapter to the external membership service.
// Каждый вызов идет в сервис членства напрямую, без кэширования.
type MembershipClient struct {
	BaseURL string
	Client  *http.Client
}

func NewMembershipClient(baseURL string) *MembershipClient {
	return &MembershipClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// IsMember asks the membership service whether the user currently belongs to
// the channel. 200 means member, 404 means not a member, anything else is an
// error of the authority itself.
func (c *MembershipClient) IsMember(ctx context.Context, userID, channelID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/channels/%s/members/%s",
		c.BaseURL, url.PathEscape(channelID), url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("membership service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("membership service returned status %d", resp.StatusCode)
	}
}
