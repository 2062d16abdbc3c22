// Package mailbox reads listing notifications from an IMAP inbox.
package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"makelaarsland-notifier/config"
	"makelaarsland-notifier/utils"
)

const inbox = "INBOX"

// ErrNoHTML means a message carried no text/html part.
var ErrNoHTML = errors.New("mailbox: no text/html part")

// Handler processes the HTML content of one notification.
type Handler func(ctx context.Context, content string) error

// session is the subset of *client.Client used while polling.
type session interface {
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
}

// Mailbox polls the configured inbox for unseen notifications.
type Mailbox struct {
	addr     string
	username string
	password string
	from     string
	logger   *utils.Logger

	dial func(ctx context.Context) (session, error)
}

// New creates a Mailbox from cfg.
func New(cfg *config.Config, logger *utils.Logger) *Mailbox {
	m := &Mailbox{
		addr:     cfg.IMAPAddr,
		username: cfg.Email,
		password: cfg.EmailPassword,
		from:     cfg.MailFromFilter,
		logger:   logger,
	}
	m.dial = m.connect
	return m
}

func (m *Mailbox) connect(ctx context.Context) (session, error) {
	if m.username == "" || m.password == "" {
		return nil, errors.New("mailbox: credentials not configured")
	}

	c, err := client.DialTLS(m.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("mailbox: dial %s: %w", m.addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if err := c.Login(m.username, m.password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("mailbox: login: %w", err)
	}
	if _, err := c.Select(inbox, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("mailbox: select %s: %w", inbox, err)
	}
	return c, nil
}

// Poll hands every unseen notification to handle, oldest first. A message is
// marked \Seen only after handle returns nil; the first handler error ends
// the poll and is returned.
func (m *Mailbox) Poll(ctx context.Context, handle Handler) error {
	m.logger.Info("[mailbox] Checking %s for unseen mail from %s", m.addr, m.from)

	s, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Logout(); err != nil {
			m.logger.Debug("[mailbox] Logout: %v", err)
		}
	}()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if m.from != "" {
		criteria.Header.Add("From", m.from)
	}

	uids, err := s.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("mailbox: search: %w", err)
	}
	m.logger.Info("[mailbox] Found %d unseen message(s)", len(uids))

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := fetch(s, uid)
		if err != nil {
			return err
		}

		content, err := DecodeHTML(raw)
		if err != nil {
			// Undecodable mail would be retried forever; skip it for good.
			m.logger.Warn("[mailbox] Message %d skipped: %v", uid, err)
			if err := markSeen(s, uid); err != nil {
				return err
			}
			continue
		}

		if err := handle(ctx, content); err != nil {
			return fmt.Errorf("mailbox: handle message %d: %w", uid, err)
		}
		if err := markSeen(s, uid); err != nil {
			return err
		}
		m.logger.Info("[mailbox] Message %d processed and marked as read", uid)
	}
	return nil
}

// fetch reads the full message without setting \Seen.
func fetch(s session, uid uint32) ([]byte, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	section := &imap.BodySectionName{Peek: true}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	// messages must be drained until UidFetch closes it, or the client stalls.
	var (
		raw     []byte
		readErr error
	)
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil || readErr != nil {
			continue
		}
		b, err := io.ReadAll(body)
		if err != nil {
			readErr = fmt.Errorf("mailbox: read message %d: %w", uid, err)
			continue
		}
		raw = b
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("mailbox: fetch message %d: %w", uid, err)
	}
	if readErr != nil {
		return nil, readErr
	}
	if raw == nil {
		return nil, fmt.Errorf("mailbox: fetch message %d: empty body", uid)
	}
	return raw, nil
}

func markSeen(s session, uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mailbox: mark message %d seen: %w", uid, err)
	}
	return nil
}

// DecodeHTML returns the first text/html part of an RFC 822 message,
// transfer-decoded and converted to UTF-8. Single-part messages are treated
// as one part.
func DecodeHTML(raw []byte) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("mailbox: parse message: %w", err)
	}
	defer mr.Close()

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", ErrNoHTML
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("mailbox: read part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if !strings.EqualFold(ct, "text/html") {
			continue
		}

		body, err := io.ReadAll(p.Body)
		if err != nil {
			return "", fmt.Errorf("mailbox: read html part: %w", err)
		}
		return string(body), nil
	}
}
