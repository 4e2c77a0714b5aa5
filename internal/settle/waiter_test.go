package settle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
)

func fastConfig() config.SettleConfig {
	return config.SettleConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Timeout:         100 * time.Millisecond,
	}
}

func TestUntilReturnsOnceVisible(t *testing.T) {
	w := NewWaiter(fastConfig(), nil)
	calls := 0
	err := w.Until(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("expected settle, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 checks, got %d", calls)
	}
}

func TestUntilRetriesCheckErrors(t *testing.T) {
	w := NewWaiter(fastConfig(), nil)
	calls := 0
	err := w.Until(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		if calls == 1 {
			return false, errors.New("flaky")
		}
		return true, nil
	})
	if err != nil {
		t.Fatalf("expected settle after transient error, got %v", err)
	}
}

func TestUntilTimesOut(t *testing.T) {
	cfg := fastConfig()
	cfg.Timeout = 20 * time.Millisecond
	w := NewWaiter(cfg, nil)

	err := w.Until(context.Background(), func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrNotSettled) {
		t.Fatalf("expected ErrNotSettled, got %v", err)
	}
}

func TestUntilNilCheck(t *testing.T) {
	if err := NewWaiter(config.SettleConfig{}, nil).Until(context.Background(), nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestNewWaiterDefaults(t *testing.T) {
	w := NewWaiter(config.SettleConfig{MaxInterval: time.Nanosecond}, nil)
	if w.initial != 100*time.Millisecond || w.max != w.initial || w.timeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", w)
	}
}
