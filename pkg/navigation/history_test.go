package navigation

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHistory_PushBackForward(t *testing.T) {
	h := NewHistory("/agents?foo=1")

	notified := 0
	h.Subscribe(func() { notified++ })

	h.Push("/agents?foo=2")
	h.Push("/boards")
	if notified != 0 {
		t.Errorf("Push notified subscribers %d times", notified)
	}
	if h.Len() != 3 || h.URL() != "/boards" {
		t.Fatalf("Len=%d URL=%s", h.Len(), h.URL())
	}

	if !h.Back() {
		t.Fatal("Back() = false")
	}
	if h.Path() != "/agents" || h.RawQuery() != "foo=2" {
		t.Errorf("after Back: %s", h.URL())
	}
	if notified != 1 {
		t.Errorf("notified = %d, want 1", notified)
	}

	if !h.Forward() || h.URL() != "/boards" {
		t.Errorf("after Forward: %s", h.URL())
	}
	if h.Forward() {
		t.Error("Forward at end should return false")
	}
	if notified != 2 {
		t.Errorf("notified = %d, want 2", notified)
	}
}

func TestHistory_PushDropsForwardEntries(t *testing.T) {
	h := NewHistory("/a")
	h.Push("/b")
	h.Push("/c")
	h.Back()
	h.Back()
	h.Push("/d")

	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
	if h.Forward() {
		t.Error("forward entries should be gone")
	}
}

func TestHistory_ReplaceKeepsLength(t *testing.T) {
	h := NewHistory("/agents?foo=1")
	notified := 0
	h.Subscribe(func() { notified++ })

	h.Replace("/agents?foo=1&sort=name&dir=asc")

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
	if h.RawQuery() != "foo=1&sort=name&dir=asc" {
		t.Errorf("RawQuery() = %s", h.RawQuery())
	}
	if notified != 0 {
		t.Errorf("Replace notified subscribers")
	}
	if h.Back() {
		t.Error("Back() after Replace on the only entry should be false")
	}
}

func TestHistory_QueryOnlyTargetKeepsPath(t *testing.T) {
	h := NewHistory("/boards/1/tasks")
	h.Replace("?tasks_sort=status#top")

	if h.URL() != "/boards/1/tasks?tasks_sort=status" {
		t.Errorf("URL() = %s", h.URL())
	}
}

func TestHistory_Unsubscribe(t *testing.T) {
	h := NewHistory("/a")
	h.Push("/b")

	notified := 0
	unsubscribe := h.Subscribe(func() { notified++ })
	unsubscribe()

	h.Back()
	if notified != 0 {
		t.Errorf("unsubscribed listener ran %d times", notified)
	}
}

func TestNavigate(t *testing.T) {
	tests := []struct {
		mode    Mode
		wantLen int
	}{
		{mode: ModePush, wantLen: 2},
		{mode: ModeReplace, wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			h := NewHistory("/a")
			Navigate(h, "/b", tt.mode)
			if h.Len() != tt.wantLen || h.URL() != "/b" {
				t.Errorf("Len=%d URL=%s", h.Len(), h.URL())
			}
		})
	}
}

func TestRequestLocation(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/agents?foo=1&b=%7e", nil)
	loc := FromRequest(r)

	if loc.Path() != "/agents" || loc.RawQuery() != "foo=1&b=%7e" {
		t.Fatalf("Path=%s RawQuery=%s", loc.Path(), loc.RawQuery())
	}
	if _, _, moved := loc.Target(); moved {
		t.Error("Target recorded before Replace")
	}

	loc.Replace("/agents?foo=1&b=%7e&sort=name&dir=desc")

	target, mode, moved := loc.Target()
	if !moved || mode != ModeReplace || target != "/agents?foo=1&b=%7e&sort=name&dir=desc" {
		t.Errorf("Target() = %s, %v, %v", target, mode, moved)
	}

	w := httptest.NewRecorder()
	loc.Redirect(w, r)
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", w.Code)
	}
	if got := w.Header().Get("Location"); got != target {
		t.Errorf("Location = %s, want %s", got, target)
	}
}

func TestRequestLocation_Navigate(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		mode       Mode
		wantTarget string
	}{
		{name: "push to list", target: "/agents?limit=10", mode: ModePush, wantTarget: "/agents?limit=10"},
		{name: "query only keeps path", target: "?offset=50", mode: ModePush, wantTarget: "/agents/123/delete?offset=50"},
		{name: "replace drops fragment", target: "/agents#top", mode: ModeReplace, wantTarget: "/agents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := NewRequestLocation("/agents/123/delete", "limit=10")
			Navigate(loc, tt.target, tt.mode)

			target, mode, moved := loc.Target()
			if !moved || mode != tt.mode || target != tt.wantTarget {
				t.Errorf("Target() = %s, %v, %v", target, mode, moved)
			}
			if loc.URL() != tt.wantTarget {
				t.Errorf("URL() = %s, want %s", loc.URL(), tt.wantTarget)
			}
		})
	}
}
