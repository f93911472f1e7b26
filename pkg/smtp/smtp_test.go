package smtp

import (
	smtpPkg "net/smtp"
	"strings"
	"testing"
)

func TestSendVerificationCode(t *testing.T) {
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_MAIL", "noreply@example.com")

	client := New().(*smtp)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	client.send = func(addr string, _ smtpPkg.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := client.SendVerificationCode("alice@example.com", "abc123"); err != nil {
		t.Fatalf("SendVerificationCode failed: %v", err)
	}

	if gotAddr != "mail.example.com:2525" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "noreply@example.com" || len(gotTo) != 1 || gotTo[0] != "alice@example.com" {
		t.Errorf("unexpected envelope from=%q to=%v", gotFrom, gotTo)
	}
	if !strings.Contains(string(gotMsg), "Your verification code is: abc123") {
		t.Errorf("unexpected body %q", gotMsg)
	}
}
