package utils

import (
	"fmt"
	"net/smtp"
	"os"
)

// SendMail delivers a raw RFC 822 message through the configured SMTP relay.
func SendMail(email string, message []byte) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpPort == "" {
		smtpPort = "587"
	}

	if from == "" || smtpHost == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	auth := smtp.PlainAuth("", from, password, smtpHost)
	return smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{email}, message)
}

// SendSubscriptionExpiryReminder notifies a subscriber that their featured
// pin slot lapses soon.
func SendSubscriptionExpiryReminder(email, username string, daysLeft int) error {
	subject := "Your pinned post is expiring soon"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour subscription expires in %d days. Renew it to keep your post pinned.\r\n",
		username, daysLeft,
	)
	message := []byte("To: " + email + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)

	return SendMail(email, message)
}
