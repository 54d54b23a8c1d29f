package urlquery

import "testing"

func TestParse_EncodeRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"foo=1",
		"b=2&a=%7e",
		"q=hello+world&tag=a&tag=b",
		"flag&x=",
		"a=1&&b=2",
		"bad=%zz&ok=1",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			if got := Parse(raw).Encode(); got != raw {
				t.Errorf("Encode() = %q, want %q", got, raw)
			}
		})
	}
}

func TestParse_StripsQuestionMark(t *testing.T) {
	if got := Parse("?foo=1").Encode(); got != "foo=1" {
		t.Errorf("Encode() = %q, want foo=1", got)
	}
}

func TestQuery_Get(t *testing.T) {
	q := Parse("tag=a&tag=b&q=hello+world&name=%C3%A9&bad=%zz&flag")

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{key: "tag", want: "a", wantOK: true},
		{key: "q", want: "hello world", wantOK: true},
		{key: "name", want: "é", wantOK: true},
		{key: "bad", want: "%zz", wantOK: true},
		{key: "flag", want: "", wantOK: true},
		{key: "missing", want: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := q.Get(tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Get(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestQuery_Set(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		key   string
		value string
		want  string
	}{
		{name: "append to empty", raw: "", key: "sort", value: "name", want: "sort=name"},
		{name: "append after existing", raw: "foo=1", key: "sort", value: "name", want: "foo=1&sort=name"},
		{name: "replace in place", raw: "sort=a&foo=%7e", key: "sort", value: "b", want: "sort=b&foo=%7e"},
		{name: "drop later duplicates", raw: "sort=a&x=1&sort=b", key: "sort", value: "c", want: "sort=c&x=1"},
		{name: "escapes value", raw: "", key: "q", value: "a b&c", want: "q=a+b%26c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.raw)
			q.Set(tt.key, tt.value)
			if got := q.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuery_Del(t *testing.T) {
	q := Parse("foo=1&sort=a&dir=desc&sort=b")
	q.Del("sort")
	q.Del("missing")
	if got := q.Encode(); got != "foo=1&dir=desc" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestQuery_CloneIsIndependent(t *testing.T) {
	original := Parse("foo=1")
	clone := original.Clone()
	clone.Set("sort", "name")

	if got := original.Encode(); got != "foo=1" {
		t.Errorf("original changed: %q", got)
	}
}

func TestJoinPath(t *testing.T) {
	if got := JoinPath("/agents", Query{}); got != "/agents" {
		t.Errorf("JoinPath(empty) = %q", got)
	}
	if got := JoinPath("/agents", Parse("foo=1")); got != "/agents?foo=1" {
		t.Errorf("JoinPath = %q", got)
	}
}
