package helpdesk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingSource struct {
	mu     sync.Mutex
	tokens []string
	err    error
	calls  int
}

func (s *countingSource) Refresh(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	i := s.calls
	s.calls++
	if i < len(s.tokens) {
		return s.tokens[i], nil
	}
	return s.tokens[len(s.tokens)-1], nil
}

func TestTokenCachedUntilExpiry(t *testing.T) {
	src := &countingSource{tokens: []string{"tok-1", "tok-2"}}
	p := NewTokenProvider(src)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return current }

	got, err := p.Token(context.Background())
	if err != nil || got != "tok-1" {
		t.Fatalf("first Token = %q, %v", got, err)
	}

	// Within validity: cached, no second refresh.
	current = current.Add(30 * time.Minute)
	got, err = p.Token(context.Background())
	if err != nil || got != "tok-1" {
		t.Fatalf("cached Token = %q, %v", got, err)
	}
	if src.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", src.calls)
	}

	// Past validity: refreshed.
	current = current.Add(time.Hour)
	got, err = p.Token(context.Background())
	if err != nil || got != "tok-2" {
		t.Fatalf("refreshed Token = %q, %v", got, err)
	}
	if src.calls != 2 {
		t.Errorf("refresh calls = %d, want 2", src.calls)
	}
}

func TestTokenInvalidateForcesRefresh(t *testing.T) {
	src := &countingSource{tokens: []string{"tok-1", "tok-2"}}
	p := NewTokenProvider(src)

	if _, err := p.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.Invalidate()
	got, err := p.Token(context.Background())
	if err != nil || got != "tok-2" {
		t.Fatalf("Token after Invalidate = %q, %v", got, err)
	}
}

func TestTokenRefreshError(t *testing.T) {
	src := &countingSource{err: errors.New("issuer down")}
	p := NewTokenProvider(src)

	if _, err := p.Token(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
}

func TestTokenEmptyRefreshRejected(t *testing.T) {
	src := &countingSource{tokens: []string{""}}
	p := NewTokenProvider(src)

	if _, err := p.Token(context.Background()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestTokenSingleFlight(t *testing.T) {
	src := &countingSource{tokens: []string{"tok-1"}}
	p := NewTokenProvider(src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, err := p.Token(context.Background()); err != nil || got != "tok-1" {
				t.Errorf("Token = %q, %v", got, err)
			}
		}()
	}
	wg.Wait()
	if src.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", src.calls)
	}
}
