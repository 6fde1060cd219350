package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"tappinpay/internal/config"
	"tappinpay/internal/domain"
	"tappinpay/internal/http/handlers"
	"tappinpay/internal/remote/remotetest"
	"tappinpay/internal/repos"
)

const (
	testSID  = "5f0c2f4e-6a0b-4b8e-9d57-0f1f5c3a9e11"
	adminPin = "2468"
)

var catalog = []domain.Product{
	{ID: "FOOD001", Name: "Organic Apples", Price: 120, Description: "Fresh red apples"},
	{ID: "ELEC002", Name: "USB-C Cable", Price: 299, Description: "1m braided cable"},
	{ID: "CLTH003", Name: "Cotton T-Shirt", Price: 499, Description: "Plain white tee"},
}

type testApp struct {
	app  *fiber.App
	api  *remotetest.Server
	deps *handlers.Deps
	sid  string
}

// newApp builds the real routes over an in-memory db and a fake product API.
// mw runs before the routes; scanLimit guards the capture endpoints.
func newApp(t *testing.T, scanLimit fiber.Handler, mw ...fiber.Handler) *testApp {
	t.Helper()
	api := remotetest.New(t, catalog...)
	cfg := config.Config{
		DBDSN:        ":memory:",
		APIBaseURL:   api.URL,
		APITimeout:   2 * time.Second,
		UPIPayee:     "store@okbank",
		UPIPayeeName: "QR Scanner Store",
		AdminPin:     adminPin,
		TagBaseURL:   "https://shop.example/product/",
		RevertDelay:  time.Hour,
		Cooldown:     time.Hour,
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	deps, err := handlers.NewDeps(db, repos.NewSQLiteKV(db), cfg)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	t.Cleanup(deps.Sessions.Close)

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine, ErrorHandler: handlers.ErrorHandler})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	for _, h := range mw {
		app.Use(h)
	}
	deps.Register(app, scanLimit)
	return &testApp{app: app, api: api, deps: deps, sid: testSID}
}

// call sends a JSON request as the test shopper. hdr is key, value pairs.
func (a *testApp) call(t *testing.T, method, path string, body any, hdr ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: a.sid})
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

type logEntry struct {
	Action string         `json:"action"`
	SID    string         `json:"sid"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedBuf{b: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	mu.Lock()
	defer mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func hasAction(entries []logEntry, action string) bool {
	for _, e := range entries {
		if e.Action == action {
			return true
		}
	}
	return false
}
