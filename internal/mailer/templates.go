package mailer

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// VerificationEmail carries the link that confirms an address.
func VerificationEmail(to, name, baseURL, token string, ttl time.Duration) Message {
	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(token))
	return Message{
		To:      to,
		Subject: "Confirm your email address",
		Text: fmt.Sprintf("Hi %s,\n\nPlease confirm your email address by opening the link below.\n\n%s\n\nThe link expires in %s.\n",
			greetingName(name), link, humanize(ttl)),
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Please confirm your email address.</p><p><a href="%s">Verify email</a></p><p>The link expires in %s.</p>`,
			greetingName(name), link, humanize(ttl)),
	}
}

// OTPEmail delivers a one-time login code.
func OTPEmail(to, name, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your login code",
		Text: fmt.Sprintf("Hi %s,\n\nYour login code is %s. It is valid for %s and can be used once.\n",
			greetingName(name), code, humanize(ttl)),
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Your login code is <strong>%s</strong>.</p><p>It is valid for %s and can be used once.</p>`,
			greetingName(name), code, humanize(ttl)),
	}
}

// BookingDetails is what the booking confirmation shows.
type BookingDetails struct {
	BookingID  uint64
	Instructor string
	Date       string
	StartTime  string
	EndTime    string
	Seats      int
	Amount     int64
	Currency   string
}

// BookingConfirmationEmail acknowledges a new booking.
func BookingConfirmationEmail(to, name string, b BookingDetails) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Booking #%d received", b.BookingID),
		Text: fmt.Sprintf("Hi %s,\n\nWe have reserved %d seat(s) for you with %s on %s, %s-%s.\nAmount due: %s\n\nSee you on the mat!\n",
			greetingName(name), b.Seats, b.Instructor, b.Date, b.StartTime, b.EndTime, FormatAmount(b.Amount, b.Currency)),
	}
}

// OrderPaidEmail confirms a paid order.
func OrderPaidEmail(to, name string, orderID uint64, amount int64, currency string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Order #%d confirmed", orderID),
		Text: fmt.Sprintf("Hi %s,\n\nThank you for your purchase. We received your payment of %s for order #%d.\n",
			greetingName(name), FormatAmount(amount, currency), orderID),
	}
}

// FormatAmount renders a minor-unit amount, e.g. 150050 thb -> "1500.50 THB".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, strings.ToUpper(currency))
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func humanize(d time.Duration) string {
	if d <= 0 {
		return "a short while"
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hour(s)", int(d/time.Hour))
	}
	if d >= time.Minute {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return fmt.Sprintf("%d seconds", int(d/time.Second))
}
