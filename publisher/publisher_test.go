package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestSend(t *testing.T) {
	var got struct {
		Items map[string]float64 `json:"items"`
	}
	var key, requestId, contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		key = r.URL.Query().Get("key")
		requestId = r.Header.Get("X-Request-Id")
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	pub := NewPublisher(server.URL+"/auction", "s3cret")
	err := pub.Send(context.Background(), map[string]float64{"HYPERION": 750_000_000})
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}

	if key != "s3cret" {
		t.Errorf("FAIL: unexpected key %q", key)
		return
	}
	if _, err := uuid.Parse(requestId); err != nil {
		t.Errorf("FAIL: invalid request id %q", requestId)
		return
	}
	if contentType != "application/json" {
		t.Errorf("FAIL: unexpected content type %q", contentType)
		return
	}
	if got.Items["HYPERION"] != 750_000_000 {
		t.Errorf("FAIL: unexpected body %+v", got)
		return
	}
	t.Log("PASS: send")
}

func TestSendRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer server.Close()

	pub := NewPublisher(server.URL, "wrong")
	err := pub.Send(context.Background(), []int{1, 2, 3})
	if err == nil {
		t.Errorf("FAIL: rejected publish did not fail")
		return
	}
	t.Log("PASS:", err)
}
