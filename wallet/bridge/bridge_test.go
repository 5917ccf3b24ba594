package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mirador/solconnect/session"
)

var upgrader = websocket.Upgrader{}

// fakeBridge is a scripted remote wallet on the far side of the socket.
type fakeBridge struct {
	srv *httptest.Server

	// notify pushes an unsolicited frame to the connected client.
	notify chan frame
}

func newFakeBridge(t *testing.T, accounts []accountPayload) *fakeBridge {
	t.Helper()
	fb := &fakeBridge{notify: make(chan frame, 4)}

	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		requests := make(chan frame)
		go func() {
			defer close(requests)
			for {
				var f frame
				if err := conn.ReadJSON(&f); err != nil {
					return
				}
				requests <- f
			}
		}()

		for {
			select {
			case n := <-fb.notify:
				if err := conn.WriteJSON(n); err != nil {
					return
				}
			case f, ok := <-requests:
				if !ok {
					return
				}
				res := frame{ID: f.ID}
				switch f.Method {
				case "connect":
					raw, _ := json.Marshal(map[string]any{"accounts": accounts})
					res.Result = raw
				case "sign_message", "sign_transaction":
					var p signParams
					if err := json.Unmarshal(f.Params, &p); err != nil {
						res.Error = "bad params"
						break
					}
					payload, _ := base64.StdEncoding.DecodeString(p.Payload)
					// Echo a fake deterministic signature.
					raw, _ := json.Marshal(signResult{
						Signature: base64.StdEncoding.EncodeToString(append([]byte("sig:"), payload...)),
					})
					res.Result = raw
				case "disconnect":
					res.Result = json.RawMessage(`{}`)
				default:
					res.Error = "unknown method"
				}
				if err := conn.WriteJSON(res); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBridge) wsURL() string {
	return "ws" + strings.TrimPrefix(fb.srv.URL, "http")
}

func TestProvider_ConnectAndSign(t *testing.T) {
	fb := newFakeBridge(t, []accountPayload{
		{Address: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", Label: "Main"},
		{Address: "So11111111111111111111111111111111111111112"},
	})

	p := New(Config{URL: fb.wsURL(), Name: "Remote", CallTimeout: 2 * time.Second})
	defer p.Disconnect(context.Background())

	accounts, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Label != "Main" {
		t.Fatalf("accounts = %+v", accounts)
	}

	sig, err := accounts[0].Signer.SignMessage(context.Background(), []byte("hello"))
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if string(sig) != "sig:hello" {
		t.Errorf("signature = %q", sig)
	}

	txSig, err := accounts[0].Signer.SignTransaction(context.Background(), []byte("tx"))
	if err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}
	if string(txSig) != "sig:tx" {
		t.Errorf("tx signature = %q", txSig)
	}
}

func TestProvider_AccountsChangedNotification(t *testing.T) {
	fb := newFakeBridge(t, []accountPayload{{Address: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"}})

	p := New(Config{URL: fb.wsURL(), CallTimeout: 2 * time.Second})
	defer p.Disconnect(context.Background())

	if _, err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	got := make(chan []session.Account, 1)
	stop := p.WatchAccounts(func(accounts []session.Account) { got <- accounts })
	defer stop()

	raw, _ := json.Marshal(map[string]any{
		"accounts": []accountPayload{{Address: "So11111111111111111111111111111111111111112"}},
	})
	fb.notify <- frame{Method: "accounts_changed", Params: raw}

	select {
	case accounts := <-got:
		if len(accounts) != 1 || accounts[0].Address != "So11111111111111111111111111111111111111112" {
			t.Errorf("accounts = %+v", accounts)
		}
		if accounts[0].Signer == nil {
			t.Error("pushed account lacks a signer")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("accounts_changed never delivered")
	}
}

func TestProvider_WatchAccountsUnsubscribeReleases(t *testing.T) {
	p := New(Config{URL: "ws://unused"})

	for i := 0; i < 100; i++ {
		stop := p.WatchAccounts(func([]session.Account) {})
		stop()
		stop() // idempotent
	}

	kept := p.WatchAccounts(func([]session.Account) {})
	defer kept()

	p.mu.Lock()
	n := len(p.watchers)
	p.mu.Unlock()
	if n != 1 {
		t.Errorf("watchers = %d, want 1 after unsubscribing the rest", n)
	}
}

func TestProvider_CallWithoutConnect(t *testing.T) {
	p := New(Config{URL: "ws://127.0.0.1:0/nowhere"})
	if _, err := p.call(context.Background(), "connect", nil); err == nil {
		t.Error("call before dial should fail")
	}
	// Disconnect without a connection is a no-op.
	if err := p.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
}

func TestProvider_ServerErrorSurfaces(t *testing.T) {
	fb := newFakeBridge(t, nil)

	p := New(Config{URL: fb.wsURL(), CallTimeout: 2 * time.Second})
	defer p.Disconnect(context.Background())

	if err := p.dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := p.call(context.Background(), "bogus", nil); err == nil {
		t.Error("bridge error response not surfaced")
	}
}

func TestProvider_PendingCallsFailOnTeardown(t *testing.T) {
	// A server that never answers.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	p := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), CallTimeout: 10 * time.Second})
	if err := p.dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := p.call(context.Background(), "connect", nil)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond) // let the call register as pending
	p.teardown()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("pending call succeeded after teardown")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call hung after teardown")
	}
}
