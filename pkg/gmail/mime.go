package gmail

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
)

// buildMIME assembles an RFC 5322 message with a single HTML body part.
// inReplyTo is the bare Message-ID of the message being answered ("" for a
// fresh send); it populates both In-Reply-To and References so threading
// works in every client.
func buildMIME(from string, to, cc []string, subject, inReplyTo, htmlBody string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", toAddressList(to))
	if len(cc) > 0 {
		h.SetAddressList("Cc", toAddressList(cc))
	}
	h.SetSubject(subject)
	if inReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{inReplyTo})
		h.SetMsgIDList("References", []string{inReplyTo})
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	var b bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&b, h)
	if err != nil {
		return nil, fmt.Errorf("unable to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, htmlBody); err != nil {
		w.Close()
		return nil, fmt.Errorf("unable to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func toAddressList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &mail.Address{Address: a})
	}
	return out
}
