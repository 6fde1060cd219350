package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tappinpay/internal/domain"
	"tappinpay/internal/remote"
	"tappinpay/internal/remote/remotetest"
	"tappinpay/internal/repos"
	"tappinpay/internal/scan"
)

func newClockedCheckout(t *testing.T, clock *time.Time) (*CheckoutService, *SessionService) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	api := remotetest.New(t)
	client := remote.NewClient(api.URL, 2*time.Second)
	sessions := NewSessionService(repos.NewSQLiteKV(db), client, scan.Options{RevertDelay: time.Hour, Cooldown: time.Hour})
	t.Cleanup(sessions.Close)

	co := NewCheckoutService(sessions, client, repos.NewOrderRepo(db), "store@upi", "QR Scanner Store")
	co.now = func() time.Time { return *clock }
	return co, sessions
}

func TestCheckout_SameMillisecondIntentsStayDistinct(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000)
	co, sessions := newClockedCheckout(t, &clock)
	apple := domain.Product{ID: "FOOD001", Name: "Organic Apples", Price: 100}
	sessions.Kiosk("a").Cart.AddItem(apple)
	sessions.Kiosk("b").Cart.AddItem(apple)

	first, err := co.StartUPI("a")
	if err != nil {
		t.Fatal(err)
	}
	second, err := co.StartUPI("b")
	if err != nil {
		t.Fatal(err)
	}
	if first.OrderID == second.OrderID {
		t.Fatalf("both intents got %q", first.OrderID)
	}
	if first.OrderID != "ORD1700000000000" {
		t.Fatalf("first id %q", first.OrderID)
	}

	ctx := context.Background()
	if _, err := co.ConfirmUPI(ctx, "a", first.OrderID, true); err != nil {
		t.Fatalf("first shopper lost their payment: %v", err)
	}
	if _, err := co.ConfirmUPI(ctx, "b", second.OrderID, true); err != nil {
		t.Fatalf("second shopper lost their payment: %v", err)
	}
}

func TestCheckout_PendingIntentsExpire(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000)
	co, sessions := newClockedCheckout(t, &clock)
	sessions.Kiosk("a").Cart.AddItem(domain.Product{ID: "FOOD001", Name: "Organic Apples", Price: 100})

	stale, err := co.StartUPI("a")
	if err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(pendingTTL + time.Second)
	if _, err := co.ConfirmUPI(context.Background(), "a", stale.OrderID, true); !errors.Is(err, ErrUnknownPayment) {
		t.Fatalf("want ErrUnknownPayment for an expired intent, got %v", err)
	}

	// abandoned intents are pruned when new ones start
	if _, err := co.StartUPI("a"); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(pendingTTL + time.Second)
	if _, err := co.StartUPI("a"); err != nil {
		t.Fatal(err)
	}
	co.mu.Lock()
	n := len(co.pending)
	co.mu.Unlock()
	if n != 1 {
		t.Fatalf("want 1 pending intent, got %d", n)
	}
}
