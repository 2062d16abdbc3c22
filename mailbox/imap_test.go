package mailbox

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emersion/go-imap"

	"makelaarsland-notifier/utils"
)

const multipartMessage = "From: info@makelaarsland.nl\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Nieuw aanbod\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"plain version\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"PGEgaHJlZj0iaHR0cHM6Ly94Ij5IdWlzPC9hPg==\r\n" +
	"--b1--\r\n"

const latin1Message = "From: info@makelaarsland.nl\r\n" +
	"Subject: Nieuw aanbod\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=iso-8859-1\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"<p>Caf=E9 aan de gracht</p>\r\n"

const plainMessage = "From: info@makelaarsland.nl\r\n" +
	"Subject: Nieuw aanbod\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"no html here\r\n"

func TestDecodeHTML(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"multipart base64", multipartMessage, `<a href="https://x">Huis</a>`},
		{"single part latin1", latin1Message, "Café"},
	}
	for _, tt := range tests {
		got, err := DecodeHTML([]byte(tt.raw))
		if err != nil {
			t.Errorf("%s: DecodeHTML error: %v", tt.name, err)
			continue
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("%s: DecodeHTML = %q; want it to contain %q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeHTMLWithoutHTMLPart(t *testing.T) {
	if _, err := DecodeHTML([]byte(plainMessage)); !errors.Is(err, ErrNoHTML) {
		t.Errorf("DecodeHTML(plain) error = %v; want ErrNoHTML", err)
	}
}

type fakeSession struct {
	messages  map[uint32]string
	uids      []uint32
	seen      []uint32
	loggedOut bool
}

func (f *fakeSession) UidSearch(_ *imap.SearchCriteria) ([]uint32, error) {
	return f.uids, nil
}

func (f *fakeSession) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	section, err := imap.ParseBodySectionName(items[0])
	if err != nil {
		return err
	}
	for _, uid := range f.uids {
		if !seqset.Contains(uid) {
			continue
		}
		msg := imap.NewMessage(uid, items)
		msg.Uid = uid
		msg.Body = map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewBufferString(f.messages[uid]),
		}
		ch <- msg
	}
	return nil
}

func (f *fakeSession) UidStore(seqset *imap.SeqSet, _ imap.StoreItem, _ interface{}, _ chan *imap.Message) error {
	for _, uid := range f.uids {
		if seqset.Contains(uid) {
			f.seen = append(f.seen, uid)
		}
	}
	return nil
}

func (f *fakeSession) Logout() error {
	f.loggedOut = true
	return nil
}

func newTestMailbox(s *fakeSession) *Mailbox {
	m := &Mailbox{addr: "imap.test:993", from: "info@makelaarsland.nl", logger: utils.NewLogger()}
	m.dial = func(context.Context) (session, error) { return s, nil }
	return m
}

func TestPollMarksSeenAfterSuccess(t *testing.T) {
	s := &fakeSession{
		uids:     []uint32{7, 8},
		messages: map[uint32]string{7: multipartMessage, 8: plainMessage},
	}
	m := newTestMailbox(s)

	var handled []string
	err := m.Poll(context.Background(), func(_ context.Context, content string) error {
		handled = append(handled, content)
		return nil
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(handled) != 1 {
		t.Errorf("handled %d messages; want 1 (message 8 has no HTML)", len(handled))
	}
	if len(s.seen) != 2 {
		t.Errorf("seen = %v; want both messages marked", s.seen)
	}
	if !s.loggedOut {
		t.Error("Poll did not log out")
	}
}

func TestPollStopsOnHandlerError(t *testing.T) {
	s := &fakeSession{
		uids:     []uint32{1, 2},
		messages: map[uint32]string{1: multipartMessage, 2: multipartMessage},
	}
	m := newTestMailbox(s)

	calls := 0
	err := m.Poll(context.Background(), func(context.Context, string) error {
		calls++
		return errors.New("publish failed")
	})
	if err == nil {
		t.Fatal("Poll: want handler error")
	}
	if calls != 1 {
		t.Errorf("handler called %d times; want 1", calls)
	}
	if len(s.seen) != 0 {
		t.Errorf("seen = %v; want nothing marked after a failure", s.seen)
	}
}

type brokenLiteral struct{}

func (brokenLiteral) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (brokenLiteral) Len() int                 { return 42 }

// streamingSession answers every fetch with several messages, the first of
// which cannot be read.
type streamingSession struct {
	fakeSession
	finished chan struct{}
}

func (s *streamingSession) UidFetch(_ *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(s.finished)
	defer close(ch)
	section, err := imap.ParseBodySectionName(items[0])
	if err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		var body imap.Literal = bytes.NewBufferString(multipartMessage)
		if i == 0 {
			body = brokenLiteral{}
		}
		msg := imap.NewMessage(uint32(i+1), items)
		msg.Body = map[*imap.BodySectionName]imap.Literal{section: body}
		ch <- msg
	}
	return nil
}

func TestFetchReadErrorDrainsResponses(t *testing.T) {
	s := &streamingSession{finished: make(chan struct{})}

	if _, err := fetch(s, 1); err == nil {
		t.Fatal("fetch with unreadable body: want error")
	}
	select {
	case <-s.finished:
	default:
		t.Error("fetch returned before the fetch command completed")
	}
}
