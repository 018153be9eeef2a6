package textmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		previous  string
		incoming  string
		wantNext  string
		wantDelta string
	}{
		{
			name:      "empty previous takes incoming verbatim",
			previous:  "",
			incoming:  "hello",
			wantNext:  "hello",
			wantDelta: "hello",
		},
		{
			name:      "empty incoming is a no-op",
			previous:  "hello",
			incoming:  "",
			wantNext:  "hello",
			wantDelta: "",
		},
		{
			name:      "strict continuation appends the whole fragment",
			previous:  "hello ",
			incoming:  "world",
			wantNext:  "hello world",
			wantDelta: "world",
		},
		{
			name:      "full resend with extension yields only the tail",
			previous:  "hello",
			incoming:  "hello world",
			wantNext:  "hello world",
			wantDelta: " world",
		},
		{
			name:      "exact duplicate yields empty delta",
			previous:  "hello world",
			incoming:  "hello world",
			wantNext:  "hello world",
			wantDelta: "",
		},
		{
			name:      "contained duplicate yields empty delta",
			previous:  "hello world",
			incoming:  "lo wor",
			wantNext:  "hello world",
			wantDelta: "",
		},
		{
			name:      "boundary overlap appends only the remainder",
			previous:  "the quick brown",
			incoming:  "brown fox",
			wantNext:  "the quick brown fox",
			wantDelta: " fox",
		},
		{
			name:      "single byte overlap",
			previous:  "abc",
			incoming:  "cd",
			wantNext:  "abcd",
			wantDelta: "d",
		},
		{
			name:      "longest overlap wins over a shorter one",
			previous:  "abab",
			incoming:  "abx",
			wantNext:  "ababx",
			wantDelta: "x",
		},
		{
			name:      "no relation appends verbatim",
			previous:  "foo",
			incoming:  "bar",
			wantNext:  "foobar",
			wantDelta: "bar",
		},
		{
			name:      "unicode continuation",
			previous:  "héllo",
			incoming:  "héllo wörld",
			wantNext:  "héllo wörld",
			wantDelta: " wörld",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.previous, tt.incoming)
			assert.Equal(t, tt.wantNext, got.Next)
			assert.Equal(t, tt.wantDelta, got.Delta)
		})
	}
}

// The delta invariant: appending Delta to previous always reconstructs Next.
func TestMergeDeltaInvariant(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"", "a"},
		{"a", ""},
		{"hello", "hello world"},
		{"hello world", "world"},
		{"the quick", "quick brown fox"},
		{"aaaa", "aaab"},
		{"abc", "xyz"},
		{"overlap over", "overlap"},
	}
	for _, p := range pairs {
		got := Merge(p[0], p[1])
		assert.Equal(t, got.Next, p[0]+got.Delta, "previous=%q incoming=%q", p[0], p[1])
	}
}

func TestMergeIsIdempotentOnResends(t *testing.T) {
	acc := ""
	fragments := []string{
		"The answer",
		"The answer is",
		" 42",
		" 42.",
	}
	for _, f := range fragments {
		acc = Merge(acc, f).Next
	}
	assert.Equal(t, "The answer is 42.", acc)

	// replaying the final full text changes nothing
	got := Merge(acc, acc)
	assert.Equal(t, acc, got.Next)
	assert.Empty(t, got.Delta)
}
