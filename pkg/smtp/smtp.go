package smtp

import (
	"fmt"
	smtpPkg "net/smtp"
	"os"
)

type ItfSmtp interface {
	SendVerificationCode(userEmail string, code string) error
}

type sendFunc func(addr string, a smtpPkg.Auth, from string, to []string, msg []byte) error

type smtp struct {
	auth smtpPkg.Auth
	addr string
	mail string
	send sendFunc
}

func New() ItfSmtp {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	mail := os.Getenv("SMTP_MAIL")
	username := os.Getenv("SMTP_USERNAME")
	if username == "" {
		username = mail
	}
	auth := smtpPkg.PlainAuth("", username, os.Getenv("SMTP_PASSWORD"), host)

	return &smtp{
		auth: auth,
		addr: fmt.Sprintf("%s:%s", host, port),
		mail: mail,
		send: smtpPkg.SendMail,
	}
}

func (s *smtp) SendVerificationCode(userEmail string, code string) error {
	message := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Email Verification Code\r\n\r\nYour verification code is: %s\r\n",
		s.mail, userEmail, code))

	return s.send(s.addr, s.auth, s.mail, []string{userEmail}, message)
}
