// Package publisher sends pruned price trees to a remote aggregator.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
)

type Publisher struct {
	// Endpoint receiving the POST requests
	URL string

	// Shared secret sent as the "key" query parameter
	Key string

	client *http.Client
}

func NewPublisher(link, key string) *Publisher {
	pub := Publisher{}
	pub.URL = link
	pub.Key = key
	pub.client = cleanhttp.DefaultClient()
	return &pub
}

// Send POSTs items wrapped in an object under the "items" key
func (pub *Publisher) Send(ctx context.Context, items interface{}) error {
	u, err := url.Parse(pub.URL)
	if err != nil {
		return err
	}
	if pub.Key != "" {
		v := u.Query()
		v.Set("key", pub.Key)
		u.RawQuery = v.Encode()
	}

	var body bytes.Buffer
	err = json.NewEncoder(&body).Encode(map[string]interface{}{
		"items": items,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := pub.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("publish to %s failed: %s %s", u.Host, resp.Status, bytes.TrimSpace(data))
	}

	// Drain to allow connection reuse
	io.Copy(io.Discard, resp.Body)
	return nil
}
