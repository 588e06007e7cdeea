package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Write report", "Write report"},
		{"trims", "  padded \n", "padded"},
		{"script keeps text", "<script>alert(1)</script>Hello", "alert(1)Hello"},
		{"style keeps text", "<style>p{}</style>x", "p{}x"},
		{"inline markup", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"attributes", `<a href="http://x" onclick="evil()">link</a>`, "link"},
		{"apostrophe", "Don't forget", "Don't forget"},
		{"double quotes", `Say "hi"`, `Say "hi"`},
		{"ampersand", "Tom & Jerry", "Tom & Jerry"},
		{"less than", "1 < 2", "1 < 2"},
		{"entity decoded", "fish &amp; chips", "fish & chips"},
		{"escaped markup", "&lt;b&gt;bold&lt;/b&gt;", "bold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.in))
		})
	}
}

func TestString_Idempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"<p>Tom & Jerry</p>",
		`say "hi" <br/> now`,
		"&lt;script&gt;",
		"&amp;lt;b&amp;gt;",
		"  <div> spaced </div>  ",
		"Don't forget",
		"1 < 2 && 3 > 2",
	}

	for _, in := range inputs {
		once := String(in)
		assert.Equal(t, once, String(once), "input %q", in)
	}
}

func TestTags(t *testing.T) {
	got := Tags([]string{"Alpha", "<script>x</script>", " <b>beta</b> ", "<img src=x>", "Q&A"})
	assert.Equal(t, []string{"Alpha", "x", "beta", "Q&A"}, got)
	assert.Empty(t, Tags(nil))
}

func TestPtr(t *testing.T) {
	assert.Nil(t, Ptr(nil))
	in := "<em>note</em>"
	assert.Equal(t, "note", *Ptr(&in))
}
