package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gymflow/internal/apperr"
	"gymflow/internal/config"
	"gymflow/internal/settings"
)

var colombo = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Colombo")
	if err != nil {
		panic(err)
	}
	return loc
}()

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0771234567", "+94771234567"},
		{"077 123 4567", "+94771234567"},
		{"771234567", "+94771234567"},
		{"+94 77 123 4567", "+94771234567"},
		{"+14155550100", "+14155550100"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in, "94"))
		})
	}
}

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(cfg config.EmailConfig, sent *[]sentMail, fail error) *Mailer {
	return NewMailer(cfg, settings.Static{settings.GymName: "Iron Temple"}, colombo, zap.NewNop(),
		func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			if fail != nil {
				return fail
			}
			*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
			return nil
		})
}

func TestMailer(t *testing.T) {
	ctx := context.Background()
	smtpCfg := config.EmailConfig{Host: "smtp.example.com", Port: 587, From: "desk@example.com"}

	t.Run("skips when unconfigured", func(t *testing.T) {
		var sent []sentMail
		m := newTestMailer(config.EmailConfig{}, &sent, nil)

		out, err := m.SendBirthdayWish(ctx, Recipient{Name: "Kamal", Email: "k@example.com"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, out)
		assert.Empty(t, sent)
	})

	t.Run("skips members without email", func(t *testing.T) {
		var sent []sentMail
		m := newTestMailer(smtpCfg, &sent, nil)

		out, err := m.SendPaymentDueReminder(ctx, PaymentDue{Recipient: Recipient{Name: "Kamal"}})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, out)
		assert.Empty(t, sent)
	})

	t.Run("renders a payment reminder", func(t *testing.T) {
		var sent []sentMail
		m := newTestMailer(smtpCfg, &sent, nil)

		due := time.Date(2025, 3, 10, 0, 0, 0, 0, colombo)
		out, err := m.SendPaymentDueReminder(ctx, PaymentDue{
			Recipient: Recipient{Name: "Kamal <b>", Email: "k@example.com"},
			DueDate:   due,
			Amount:    decimal.NewFromInt(3000),
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSent, out)
		require.Len(t, sent, 1)
		assert.Equal(t, "smtp.example.com:587", sent[0].addr)
		assert.Equal(t, []string{"k@example.com"}, sent[0].to)
		assert.Contains(t, sent[0].msg, "LKR 3000.00")
		assert.Contains(t, sent[0].msg, "10 March 2025")
		assert.Contains(t, sent[0].msg, "Iron Temple")
		assert.Contains(t, sent[0].msg, "Kamal &lt;b&gt;")
	})

	t.Run("renders a receipt", func(t *testing.T) {
		var sent []sentMail
		m := newTestMailer(smtpCfg, &sent, nil)

		_, err := m.SendPaymentReceipt(ctx, Receipt{
			Recipient:     Recipient{Name: "Kamal", Email: "k@example.com"},
			ReceiptNumber: "FF-202503-0001",
			Amount:        decimal.NewFromInt(3000),
			Month:         3,
			Year:          2025,
			PaidAt:        time.Date(2025, 3, 5, 10, 0, 0, 0, colombo),
			NextDueDate:   time.Date(2025, 4, 10, 0, 0, 0, 0, colombo),
		})
		require.NoError(t, err)
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].msg, "FF-202503-0001")
		assert.Contains(t, sent[0].msg, "March 2025")
		assert.Contains(t, sent[0].msg, "10 April 2025")
	})

	t.Run("renders a plan", func(t *testing.T) {
		var sent []sentMail
		m := newTestMailer(smtpCfg, &sent, nil)

		out, err := m.SendPlan(ctx, Plan{
			Recipient: Recipient{Name: "Kamal", Email: "k@example.com"},
			Kind:      "Workout Plan",
			Title:     "Week 1",
			Content:   "Squats 3x10\nPlank 60s",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSent, out)
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].msg, "Subject: Your Workout Plan: Week 1 | Iron Temple")
		assert.Contains(t, sent[0].msg, "Squats 3x10\nPlank 60s")
		assert.Contains(t, sent[0].msg, "<strong>Week 1</strong>")
	})

	t.Run("smtp errors are returned", func(t *testing.T) {
		var sent []sentMail
		m := newTestMailer(smtpCfg, &sent, errors.New("connection refused"))

		_, err := m.SendWelcome(ctx, Welcome{Recipient: Recipient{Name: "Kamal", Email: "k@example.com"}})
		assert.ErrorContains(t, err, "connection refused")
	})
}

type fakeTransport struct {
	configured bool
	err        error
	phones     []string
	bodies     []string
}

func (f *fakeTransport) Configured() bool { return f.configured }

func (f *fakeTransport) SendText(_ context.Context, phone, body string) error {
	if f.err != nil {
		return f.err
	}
	f.phones = append(f.phones, phone)
	f.bodies = append(f.bodies, body)
	return nil
}

func TestWhatsApp(t *testing.T) {
	ctx := context.Background()
	provider := settings.Static{}

	t.Run("placeholder mode skips and logs", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		transport := &fakeTransport{}
		w := NewWhatsApp(transport, provider, "94", colombo, zap.New(core))

		out, err := w.SendBirthdayWish(ctx, Recipient{Name: "Nimali", Phone: "0771234567"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, out)
		assert.Empty(t, transport.phones)
		assert.Equal(t, 1, logs.FilterMessage("WhatsApp not configured, message skipped").Len())
	})

	t.Run("sends a normalized reminder", func(t *testing.T) {
		transport := &fakeTransport{configured: true}
		w := NewWhatsApp(transport, provider, "94", colombo, zap.NewNop())

		out, err := w.SendPaymentDueReminder(ctx, PaymentDue{
			Recipient: Recipient{Name: "Nimali", Phone: "077 123 4567"},
			DueDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, colombo),
			Amount:    decimal.NewFromInt(3000),
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSent, out)
		assert.Equal(t, []string{"+94771234567"}, transport.phones)
		assert.Contains(t, transport.bodies[0], "*LKR 3000.00*")
		assert.Contains(t, transport.bodies[0], "*10 March 2025*")
		assert.Contains(t, transport.bodies[0], "Focus Fitness")
	})

	t.Run("transport errors are returned", func(t *testing.T) {
		transport := &fakeTransport{configured: true, err: errors.New("rate limited")}
		w := NewWhatsApp(transport, provider, "94", colombo, zap.NewNop())

		_, err := w.SendBirthdayWish(ctx, Recipient{Name: "Nimali", Phone: "0771234567"})
		assert.Error(t, err)
	})
}

func TestCloudAPIClient(t *testing.T) {
	t.Run("unconfigured without a token", func(t *testing.T) {
		c := NewCloudAPIClient(config.WhatsAppConfig{APIURL: "http://x", PhoneID: "1"}, nil)
		assert.False(t, c.Configured())
	})

	t.Run("posts a text message", func(t *testing.T) {
		var got cloudTextMessage
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/123/messages", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
		}))
		defer server.Close()

		c := NewCloudAPIClient(config.WhatsAppConfig{APIURL: server.URL + "/", Token: "secret", PhoneID: "123"}, server.Client())
		require.True(t, c.Configured())
		require.NoError(t, c.SendText(context.Background(), "+94771234567", "hello"))

		assert.Equal(t, "whatsapp", got.MessagingProduct)
		assert.Equal(t, "+94771234567", got.To)
		assert.Equal(t, "hello", got.Text.Body)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewCloudAPIClient(config.WhatsAppConfig{APIURL: server.URL, Token: "bad", PhoneID: "123"}, server.Client())
		err := c.SendText(context.Background(), "+94771234567", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestLinkedDeviceUnpaired(t *testing.T) {
	d, err := NewLinkedDevice(context.Background(), t.TempDir(), zap.NewNop())
	if err != nil {
		t.Skipf("sqlite session store unavailable: %v", err)
	}
	assert.False(t, d.Configured())
}

func TestQueue(t *testing.T) {
	t.Run("runs tasks and survives failures and panics", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		q := NewQueue(8, time.Second, zap.New(core))
		q.Start(context.Background(), 2)

		var ran atomic.Int32
		require.True(t, q.Enqueue("ok", func(context.Context) error { ran.Add(1); return nil }))
		require.True(t, q.Enqueue("fails", func(context.Context) error { return errors.New("smtp down") }))
		require.True(t, q.Enqueue("panics", func(context.Context) error { panic("boom") }))
		require.True(t, q.Enqueue("ok again", func(context.Context) error { ran.Add(1); return nil }))
		q.Close()

		assert.Equal(t, int32(2), ran.Load())
		assert.Equal(t, 2, logs.FilterMessage("Notification task failed").Len())
	})

	t.Run("tasks are bounded by the timeout", func(t *testing.T) {
		q := NewQueue(1, 20*time.Millisecond, zap.NewNop())
		q.Start(context.Background(), 1)

		var deadlineHit atomic.Bool
		q.Enqueue("slow", func(ctx context.Context) error {
			<-ctx.Done()
			deadlineHit.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		})
		q.Close()

		assert.True(t, deadlineHit.Load())
	})

	t.Run("full and closed queues reject work", func(t *testing.T) {
		q := NewQueue(1, time.Second, zap.NewNop())

		assert.True(t, q.Enqueue("first", func(context.Context) error { return nil }))
		assert.False(t, q.Enqueue("second", func(context.Context) error { return nil }))

		q.Start(context.Background(), 1)
		q.Close()
		assert.False(t, q.Enqueue("late", func(context.Context) error { return nil }))
	})

	t.Run("enqueue is safe during close", func(t *testing.T) {
		q := NewQueue(64, time.Second, zap.NewNop())
		q.Start(context.Background(), 1)

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				q.Enqueue("race", func(context.Context) error { return nil })
			}()
		}
		q.Close()
		wg.Wait()
	})
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("Gym <a@b.c>", "m@b.c", "Payment Receipt FF-202503-0001 | Gym", "<p>hi</p>"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
}

func TestSendSample(t *testing.T) {
	ctx := context.Background()
	smtpCfg := config.EmailConfig{Host: "smtp.example.com", Port: 587, From: "desk@example.com"}

	var sent []sentMail
	m := newTestMailer(smtpCfg, &sent, nil)

	out, err := m.SendSample(ctx, SamplePaymentReminder, "  owner@example.com ")
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeSent), out)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"owner@example.com"}, sent[0].to)
	assert.Contains(t, sent[0].msg, "Test Member")
	assert.Contains(t, sent[0].msg, "LKR 3000.00", "amount falls back to the package default")

	_, err = m.SendSample(ctx, "invoice", "owner@example.com")
	require.Error(t, err)
	assert.Equal(t, `Invalid type "invoice". Use welcome, payment_reminder, or birthday.`, apperr.Message(err))

	_, err = m.SendSample(ctx, SampleBirthday, " ")
	assert.Equal(t, "type and to are required.", apperr.Message(err))

	unconfigured := newTestMailer(config.EmailConfig{}, &sent, nil)
	out, err = unconfigured.SendSample(ctx, SampleWelcome, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeSkipped), out)
}
