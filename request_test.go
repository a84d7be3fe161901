package clipbot

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	assert := assert_.New(t)

	cases := map[string]string{
		"https://www.tiktok.com/@user/video/123?is_from_webapp=1&sender_device=pc": "https://www.tiktok.com/@user/video/123",
		"HTTPS://VM.TikTok.com/ZMabc123/":                                          "https://vm.tiktok.com/ZMabc123",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s#comments":               "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://m.youtube.com/watch?feature=share&v=abc":                          "https://m.youtube.com/watch?v=abc",
		"https://www.instagram.com/reel/Cxyz/?igsh=tracking":                       "https://www.instagram.com/reel/Cxyz",
		"  not a url  ": "not a url",
	}
	for in, want := range cases {
		assert.Equal(want, NormalizeURL(in), in)
	}
}

func TestNewRequest(t *testing.T) {
	assert := assert_.New(t)

	a := NewRequest("https://vm.tiktok.com/x/", "https://www.tiktok.com/@u/video/1?a=b", ModeDirect)
	b := NewRequest("https://vm.tiktok.com/y/", "https://www.tiktok.com/@u/video/1/", ModeInline)
	assert.Equal(a.URL, b.URL)
	assert.Equal(a.Fingerprint, b.Fingerprint)
	assert.Len(a.Fingerprint, 40)
	assert.Equal("https://vm.tiktok.com/x/", a.RawURL)
	assert.Equal("inline", b.Mode.String())

	assert.Equal("www.tiktok.com", a.Host())
	assert.True(a.HostMatches("tiktok.com"))
	assert.False(a.HostMatches("instagram.com", "ktok.com"))
}

func TestMediaResult_Validate(t *testing.T) {
	assert := assert_.New(t)

	assert.NoError(Video([]byte("v")).Validate())
	assert.NoError(PhotoSet([][]byte{[]byte("p")}).Validate())
	assert.NoError(PhotoURLSet([]string{"https://example.com/p.jpg"}).Validate())

	assert.ErrorIs(Video(nil).Validate(), ErrInvalidResult)
	assert.ErrorIs(Video([]byte{}).Validate(), ErrEmptyResult)
	assert.ErrorIs(PhotoSet([][]byte{{}}).Validate(), ErrEmptyResult)
	assert.ErrorIs(PhotoURLSet([]string{}).Validate(), ErrEmptyResult)
	assert.ErrorIs(MediaResult{}.Validate(), ErrInvalidResult)
	assert.ErrorIs(MediaResult{Kind: MediaKindVideo, Video: []byte("v"), PhotoURLs: []string{"x"}}.Validate(), ErrInvalidResult)

	r := PhotoSet([][]byte{[]byte("ab"), []byte("cde")})
	assert.EqualValues(5, r.Size())
	assert.Equal(2, r.Count())
}
