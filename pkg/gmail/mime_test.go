package gmail

import (
	"bytes"
	"io"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMERoundTrip(t *testing.T) {
	raw, err := buildMIME(
		"shared@org.example",
		[]string{"to@x.example"},
		[]string{"cc1@x.example", "cc2@x.example"},
		"Re: Hello",
		"abc123@mail.example",
		"<p>Body with a <b>tag</b>.</p>",
	)
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Re: Hello", subject)

	from, err := r.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "shared@org.example", from[0].Address)

	cc, err := r.Header.AddressList("Cc")
	require.NoError(t, err)
	assert.Len(t, cc, 2)

	inReplyTo, err := r.Header.MsgIDList("In-Reply-To")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123@mail.example"}, inReplyTo)
	refs, err := r.Header.MsgIDList("References")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123@mail.example"}, refs)

	part, err := r.NextPart()
	require.NoError(t, err)
	inlineHeader, ok := part.Header.(*mail.InlineHeader)
	require.True(t, ok)
	ct, _, err := inlineHeader.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "text/html", ct)

	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<p>Body with a <b>tag</b>.</p>")
}

func TestBuildMIMEWithoutReplyHeaders(t *testing.T) {
	raw, err := buildMIME("a@x.example", []string{"b@x.example"}, nil, "Fresh", "", "<p>hi</p>")
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.False(t, r.Header.Has("In-Reply-To"))
	assert.False(t, r.Header.Has("Cc"))
}
