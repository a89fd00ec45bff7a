package notification

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"songmail/internal/config"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	jobs []Job
	err  error
	done chan struct{}
}

func newRecordingSender(err error) *recordingSender {
	return &recordingSender{err: err, done: make(chan struct{}, 16)}
}

func (s *recordingSender) Send(_ context.Context, job Job) error {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	s.done <- struct{}{}
	return s.err
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func sampleJob() Job {
	return NewSongJob("[Songs App]", "Songs App <noreply@songs.test>", "alex@example.com", "Alex", "Yesterday", "The Beatles", "Help!")
}

func TestNewSongJob_Subject(t *testing.T) {
	assert.Equal(t, "[Songs App] This is a cool song", sampleJob().Subject)

	job := NewSongJob("  ", "a@b.c", "x@y.z", "", "t", "a", "")
	assert.Equal(t, "This is a cool song", job.Subject)
}

func TestPool_DeliversSubmittedJobs(t *testing.T) {
	sender := newRecordingSender(nil)
	pool := NewPool(sender, 2, 4)
	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(context.Background(), sampleJob()))
	waitFor(t, sender.done)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.jobs, 1)
	assert.Equal(t, "alex@example.com", sender.jobs[0].RecipientEmail)
}

func TestPool_FailedDeliveryKeepsWorkerAlive(t *testing.T) {
	sender := newRecordingSender(errors.New("smtp down"))
	pool := NewPool(sender, 1, 4)
	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(context.Background(), sampleJob()))
	waitFor(t, sender.done)
	require.NoError(t, pool.Submit(context.Background(), sampleJob()))
	waitFor(t, sender.done)
}

type blockingSender struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSender) Send(ctx context.Context, _ Job) error {
	s.started <- struct{}{}
	<-s.release
	return nil
}

func TestPool_SubmitNeverBlocks(t *testing.T) {
	sender := &blockingSender{started: make(chan struct{}, 4), release: make(chan struct{})}
	pool := NewPool(sender, 1, 1)
	pool.Start(context.Background())

	require.NoError(t, pool.Submit(context.Background(), sampleJob()))
	waitFor(t, sender.started)

	require.NoError(t, pool.Submit(context.Background(), sampleJob()))
	assert.ErrorIs(t, pool.Submit(context.Background(), sampleJob()), ErrQueueFull)

	close(sender.release)
	pool.Stop()

	assert.ErrorIs(t, pool.Submit(context.Background(), sampleJob()), ErrStopped)
}

func TestPool_StopDrainsQueue(t *testing.T) {
	sender := newRecordingSender(nil)
	pool := NewPool(sender, 1, 8)
	pool.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(context.Background(), sampleJob()))
	}
	pool.Stop()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.jobs, 5)
}

func TestPool_SubmitCancelledContext(t *testing.T) {
	pool := NewPool(newRecordingSender(nil), 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pool.Submit(ctx, sampleJob()), context.Canceled)
}

func TestSMTPMailer_BuildsMultipartMessage(t *testing.T) {
	mailer := NewSMTPMailer(config.MailConfig{
		SMTPHost: "smtp.songs.test",
		SMTPPort: 587,
		Username: "user",
		Password: "pass",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	mailer.sendMail = func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	job := sampleJob()
	job.SongTitle = "Tom & Jerry <live>"
	require.NoError(t, mailer.Send(context.Background(), job))

	body := string(gotMsg)
	assert.Equal(t, "smtp.songs.test:587", gotAddr)
	assert.Equal(t, "noreply@songs.test", gotFrom)
	assert.Equal(t, []string{"alex@example.com"}, gotTo)
	assert.Contains(t, body, "Subject: [Songs App] This is a cool song")
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text/plain; charset=UTF-8")
	assert.Contains(t, body, "text/html; charset=UTF-8")
	assert.Contains(t, body, "Tom & Jerry <live> by The Beatles")
	assert.Contains(t, body, "Tom &amp; Jerry &lt;live&gt;")
	assert.Contains(t, body, "Hello Alex,")
}

func TestSMTPMailer_RejectsBadRecipient(t *testing.T) {
	mailer := NewSMTPMailer(config.MailConfig{SMTPHost: "localhost", SMTPPort: 25})
	mailer.sendMail = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("should not send")
		return nil
	}

	job := sampleJob()
	job.RecipientEmail = "not an address"
	assert.Error(t, mailer.Send(context.Background(), job))
}

func mailerFor(t *testing.T, ln net.Listener) *SMTPMailer {
	t.Helper()
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return NewSMTPMailer(config.MailConfig{SMTPHost: host, SMTPPort: p})
}

func TestSMTPMailer_SilentServerHitsDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	mailer := mailerFor(t, ln)
	done := make(chan error, 1)
	go func() { done <- mailer.Send(ctx, sampleJob()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Send ignored the context deadline")
	}
}

// serveOneMessage speaks just enough SMTP to accept a single message.
func serveOneMessage(ln net.Listener, got chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 smtp.songs.test ESMTP")
	var data string
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(verb, "EHLO"):
			_ = tp.PrintfLine("250-smtp.songs.test")
			_ = tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(verb, "HELO"), strings.HasPrefix(verb, "MAIL"), strings.HasPrefix(verb, "RCPT"):
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(verb, "DATA"):
			_ = tp.PrintfLine("354 go ahead")
			b, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			data = string(b)
			_ = tp.PrintfLine("250 queued")
		case strings.HasPrefix(verb, "QUIT"):
			_ = tp.PrintfLine("221 bye")
			got <- data
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func TestSMTPMailer_DeliversOverSMTP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan string, 1)
	go serveOneMessage(ln, got)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mailerFor(t, ln).Send(ctx, sampleJob()))

	select {
	case data := <-got:
		assert.Contains(t, data, "Subject: [Songs App] This is a cool song")
		assert.Contains(t, data, "Yesterday")
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw QUIT")
	}
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func TestAsynqDispatcher_EnqueuesSongTask(t *testing.T) {
	q := &fakeEnqueuer{}
	d := &AsynqDispatcher{client: q}

	require.NoError(t, d.Submit(context.Background(), sampleJob()))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, TypeSongShared, q.tasks[0].Type())

	sender := newRecordingSender(nil)
	require.NoError(t, NewTaskHandler(sender).ProcessTask(context.Background(), q.tasks[0]))
	assert.Equal(t, sampleJob(), sender.jobs[0])
}

func TestAsynqDispatcher_EnqueueError(t *testing.T) {
	d := &AsynqDispatcher{client: &fakeEnqueuer{err: errors.New("redis: connection refused")}}

	err := d.Submit(context.Background(), sampleJob())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "enqueue notification"))
}

func TestTaskHandler_BadPayloadSkipsRetry(t *testing.T) {
	h := NewTaskHandler(newRecordingSender(nil))

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeSongShared, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
