package utils

import (
	"clubreg/config"
	"fmt"
	"net/smtp"
	"strings"
)

// Generic Send Email
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password
	if from == "" || password == "" {
		return fmt.Errorf("email sender not configured")
	}

	// MIME basics
	headers := make(map[string]string)
	headers["From"] = from
	headers["To"] = strings.Join(to, ",")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=\"UTF-8\""

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n" + htmlBody)

	auth := smtp.PlainAuth("", from, password, smtpHost)
	return smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg.String()))
}

// SendEnrollmentCompleteEmail notifies the family that every payment for the
// record has been received
func SendEnrollmentCompleteEmail(to, firstName, lastName string) error {
	if to == "" {
		return nil
	}
	subject := "Enrollment complete"
	body := fmt.Sprintf(
		"<p>Hi,</p><p>The registration payments for <b>%s %s</b> are complete. "+
			"You can validate with the DNI at any time to review the enrollment data.</p>",
		firstName, lastName,
	)
	return SendEmail([]string{to}, subject, body)
}
