package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/fixia-app/FixiaCore/internal/pkg/env"
)

// Enabled reports whether an SMTP host is configured. Callers treat mail as
// an optional channel and skip it silently when disabled.
func Enabled() bool {
	return env.GetEnv("SMTP_HOST", "") != ""
}

// SendMail sends an HTML email via SMTP.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = "no-reply@fixia.example.com"
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	}
	return err
}

// SendPaymentReceipt emails a plain receipt for an approved subscription
// payment. Best-effort: billing state never depends on mail delivery.
func SendPaymentReceipt(to string, plan string, amountCents int64, currency string) error {
	if !Enabled() {
		return nil
	}
	subject := "Your Fixia subscription is active"
	body := fmt.Sprintf(
		"<p>Thanks for subscribing to the <strong>%s</strong> plan.</p>"+
			"<p>Amount charged: %.2f %s</p>"+
			"<p>You can manage your subscription from your dashboard.</p>",
		plan, float64(amountCents)/100, currency,
	)
	return SendMail(to, subject, body)
}
