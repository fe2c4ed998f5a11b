package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
)

// consoleService writes e-mails as MIME text instead of sending them. Used in debug and tests.
type consoleService struct {
	from       mail.Address
	subjPrefix string
	out        io.Writer // nil disables output
	logger     core.Logger
	sync       bool

	mutex sync.Mutex
	sent  []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
		out:        log.Writer(),
		logger:     logger,
	}
}

// ConsoleServiceMock sends synchronously and silently, and remembers what it sent.
type ConsoleServiceMock struct {
	*consoleService
}

func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleServiceMock {
	return &ConsoleServiceMock{consoleService: &consoleService{
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		sync:       true,
	}}
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.sendMessage(msg)
		} else {
			go svc.sendMessage(msg)
		}
	}
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}

	body, err := svc.format(*msg)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("formatting email: %v", err), err)
		return
	}
	if svc.out != nil {
		_, _ = io.WriteString(svc.out, body)
	}

	svc.mutex.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mutex.Unlock()
}

// format renders msg as a multipart/alternative (or multipart/mixed with attachments) message.
func (svc *consoleService) format(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)
	header := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(body, format+"\r\n", args...)
	}

	header("From: %s", svc.from.String())
	header("MIME-Version: 1.0")
	header("Date: %s", time.Now().Format(time.RFC1123Z))
	header("Subject: %s", svc.subjPrefix+msg.Subject)
	header("To: %s", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		header("CC: %s", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		header("BCC: %s", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	var mixedW *multipart.Writer
	if msg.HasAttachments() {
		mixedW = multipart.NewWriter(body)
		header("Content-Type: multipart/mixed; boundary=%s", mixedW.Boundary())
	} else {
		header("Content-Type: multipart/alternative; boundary=%s", altW.Boundary())
	}
	header("")

	if mixedW != nil {
		if _, err := mixedW.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()}}); err != nil {
			return "", errors.Wrap(err, "creating multipart/alternative part")
		}
	}

	parts := []struct{ ct, content string }{{"text/plain; charset=utf-8", msg.TextContent}}
	if msg.HTMLContent != "" {
		parts = append(parts, struct{ ct, content string }{"text/html; charset=utf-8", msg.HTMLContent})
	}
	for _, p := range parts {
		w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ct}})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", p.ct)
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", p.content)
	}
	if err := altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart/alternative")
	}

	if mixedW != nil {
		for _, at := range msg.Attachments {
			w, err := mixedW.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {"attachment; filename=" + at.Filename},
			})
			if err != nil {
				return "", errors.Wrapf(err, "creating %s part", at.ContentType)
			}
			_, _ = fmt.Fprintf(w, "%s\r\n", at.Content.String())
		}
		if err := mixedW.Close(); err != nil {
			return "", errors.Wrap(err, "closing multipart/mixed")
		}
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
