package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/config"
)

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	m := NewLogMailer(&log)

	require.NoError(t, m.Send(context.Background(), OTPEmail("a@example.com", "Ann", "123456", 10*time.Minute)))
	out := buf.String()
	assert.Contains(t, out, `"to":"a@example.com"`)
	assert.Contains(t, out, "123456")

	assert.Error(t, m.Send(context.Background(), Message{Subject: "x"}))
}

func TestNew_PicksImplementation(t *testing.T) {
	assert.IsType(t, &LogMailer{}, New(config.Config{}, nil))
	assert.IsType(t, &SMTPMailer{}, New(config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587}, nil))
}

func TestSMTPMailer_HonoursCancelledContext(t *testing.T) {
	m := NewSMTPMailer("127.0.0.1", 1, "", "", "from@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Send(ctx, Message{To: "a@example.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTemplates(t *testing.T) {
	v := VerificationEmail("a@example.com", "", "https://studio.example/", "abc+def", 10*time.Minute)
	assert.Contains(t, v.Text, "https://studio.example/api/auth/verify-email?token=abc%2Bdef")
	assert.Contains(t, v.Text, "Hi there")
	assert.Contains(t, v.Text, "10 minutes")

	b := BookingConfirmationEmail("a@example.com", "Ann", BookingDetails{
		BookingID: 7, Instructor: "Asha", Date: "2025-03-01", StartTime: "09:00", EndTime: "10:00",
		Seats: 2, Amount: 100000, Currency: "thb",
	})
	assert.Equal(t, "Booking #7 received", b.Subject)
	assert.True(t, strings.Contains(b.Text, "1000.00 THB"))

	assert.Equal(t, "-0.05 USD", FormatAmount(-5, "usd"))
	assert.Equal(t, "2 hour(s)", humanize(2*time.Hour))
}
