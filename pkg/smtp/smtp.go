package smtp

import (
	"fmt"
	smtpPkg "net/smtp"
	"os"
	"time"
)

type ItfSmtp interface {
	SendScanLink(email string, designerName string, link string, expiresAt time.Time) error
}

type smtp struct {
	auth smtpPkg.Auth
	mail string
	host string
}

func New() ItfSmtp {
	mail := os.Getenv("SMTP_MAIL")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	auth := smtpPkg.PlainAuth("", mail, password, host)

	return &smtp{auth: auth, mail: mail, host: host}
}

func (s *smtp) SendScanLink(email string, designerName string, link string, expiresAt time.Time) error {
	to := []string{email}

	message := []byte(fmt.Sprintf(
		"To: %s\r\nSubject: Your body scan link from %s\r\n\r\n%s has requested your measurements.\r\nOpen this link on your phone to take the scan: %s\r\nThe link works once and expires at %s.",
		email, designerName, designerName, link, expiresAt.Format("02 Jan 2006 15:04 MST")))

	err := smtpPkg.SendMail(s.host+":587", s.auth, s.mail, to, message)
	if err != nil {
		return err
	}

	return nil
}
