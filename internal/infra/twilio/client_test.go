package twilio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"birthday_notification_bot/internal/domain/messaging"

	"github.com/sirupsen/logrus"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewClient(Config{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "whatsapp:+14155238886",
		BaseURL:    srv.URL,
		RatePerSec: 100,
		Timeout:    2 * time.Second,
	}, logrus.NewEntry(l))
}

func TestSendPostsForm(t *testing.T) {
	t.Parallel()

	var got url.Values
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("basic auth = %q %q %v", user, pass, ok)
		}
		_ = r.ParseForm()
		got = r.PostForm
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"sid":"SM1","status":"queued","error_code":null}`)
	})

	rc, err := c.Send(context.Background(), "+5571999990000", "oi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rc.ID != "SM1" || rc.Status != "queued" {
		t.Fatalf("receipt = %+v", rc)
	}
	if got.Get("To") != "whatsapp:+5571999990000" || got.Get("From") != "whatsapp:+14155238886" || got.Get("Body") != "oi" {
		t.Fatalf("form = %v", got)
	}
}

func TestSendProviderError(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":63007,"message":"Twilio could not find a Channel with the specified From address","status":400}`)
	})

	_, err := c.Send(context.Background(), "whatsapp:+5571999990000", "oi")
	var te *messaging.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error %v is not a TransportError", err)
	}
	if te.Code != "63007" {
		t.Fatalf("code = %q", te.Code)
	}
	if !IsRejected(err) {
		t.Fatal("provider error not reported as rejection")
	}
}

func TestSendNonJSONError(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.Send(context.Background(), "+55", "oi")
	var te *messaging.TransportError
	if !errors.As(err, &te) || te.Code != "502" {
		t.Fatalf("err = %v", err)
	}
}

func TestSendNetworkError(t *testing.T) {
	t.Parallel()

	l := logrus.New()
	l.SetOutput(io.Discard)
	c := NewClient(Config{AccountSID: "AC1", BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logrus.NewEntry(l))

	_, err := c.Send(context.Background(), "+55", "oi")
	var te *messaging.TransportError
	if !errors.As(err, &te) || te.Code != messaging.CodeNetwork {
		t.Fatalf("err = %v", err)
	}
	if IsRejected(err) {
		t.Fatal("network failure reported as rejection")
	}
}

func TestSendCancelledWhileRateLimited(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"sid":"SM1","status":"queued"}`)
	})
	c.limiter.SetBurst(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Send(ctx, "+55", "oi"); err == nil {
		t.Fatal("Send succeeded with a cancelled context")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "active", status: http.StatusOK, body: `{"status":"active"}`},
		{name: "suspended", status: http.StatusOK, body: `{"status":"suspended"}`, wantErr: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"code":20003,"message":"Authenticate"}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/2010-04-01/Accounts/AC123.json" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			err := c.Ping(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("Ping err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
