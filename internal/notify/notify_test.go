package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/config"
	"github.com/yukikurage/taskflow-api/internal/metrics"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []Assignment
	err  error
	sent chan struct{}
}

func newRecordingNotifier(err error) *recordingNotifier {
	return &recordingNotifier{err: err, sent: make(chan struct{}, 16)}
}

func (n *recordingNotifier) NotifyAssignment(_ context.Context, a Assignment) error {
	n.mu.Lock()
	n.got = append(n.got, a)
	n.mu.Unlock()
	n.sent <- struct{}{}
	return n.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestDispatcher_DeliversAndCounts(t *testing.T) {
	m := metrics.New()
	n := newRecordingNotifier(nil)
	d := NewDispatcher(n, discardLogger(), m, 2, 10)
	d.Start()

	require.True(t, d.Enqueue(Assignment{TaskID: "t1", RecipientEmail: "bob@example.com"}))
	waitFor(t, n.sent)
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, "t1", n.got[0].TaskID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultSent)))
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	m := metrics.New()
	n := newRecordingNotifier(errors.New("smtp down"))
	d := NewDispatcher(n, discardLogger(), m, 1, 10)
	d.Start()

	assert.True(t, d.Enqueue(Assignment{TaskID: "t1"}))
	waitFor(t, n.sent)
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultFailed)))
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(newRecordingNotifier(nil), discardLogger(), m, 1, 1)

	// not started: the first fills the queue, the second is dropped
	assert.True(t, d.Enqueue(Assignment{TaskID: "t1"}))
	assert.False(t, d.Enqueue(Assignment{TaskID: "t2"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultDropped)))

	require.NoError(t, d.Stop(context.Background()))
	assert.False(t, d.Enqueue(Assignment{TaskID: "t3"}))
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	n := newRecordingNotifier(nil)
	d := NewDispatcher(n, discardLogger(), nil, 1, 5)

	for i := 0; i < 3; i++ {
		require.True(t, d.Enqueue(Assignment{TaskID: "t"}))
	}
	d.Start()
	require.NoError(t, d.Stop(context.Background()))

	assert.Len(t, n.got, 3)
}

func TestSMTPNotifier_BuildsHTMLMessage(t *testing.T) {
	cfg := &config.Config{
		MailServer:   "smtp.example.com",
		MailPort:     587,
		MailUsername: "mailer",
		MailPassword: "secret",
		MailFrom:     "noreply@example.com",
		MailFromName: "TaskFlow",
	}
	n := NewSMTPNotifier(cfg)

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := n.NotifyAssignment(context.Background(), Assignment{
		TaskTitle:      "Fix <login>",
		RecipientEmail: "bob@example.com",
		RecipientName:  "Bob",
		AssignerName:   "Alice",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"bob@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.Contains(t, gotMsg, "Hi Bob,")
	assert.Contains(t, gotMsg, "<strong>Alice</strong>")
	// task titles are escaped in the body
	assert.Contains(t, gotMsg, "Fix &lt;login&gt;")
	assert.True(t, strings.HasPrefix(gotMsg, "From: TaskFlow <noreply@example.com>\r\n"))
}

func TestSMTPNotifier_WrapsSendError(t *testing.T) {
	n := NewSMTPNotifier(&config.Config{MailServer: "localhost", MailPort: 25})
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.NotifyAssignment(context.Background(), Assignment{RecipientEmail: "bob@example.com"})
	assert.ErrorContains(t, err, "connection refused")
}
