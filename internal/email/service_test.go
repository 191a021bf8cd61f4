package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(err error) (*Service, *[]sentMail) {
	var sent []sentMail
	s := NewService("mail.local", "1025", "engine@example.com")
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return err
	}
	return s, &sent
}

func testAlert() SideEffectAlert {
	return SideEffectAlert{
		OrderID:    "0f3c9a7e-1111-2222-3333-444455556666",
		Action:     "restock",
		Trigger:    "order_status:pending->cancelled",
		Error:      "restock for order 0f3c9a7e failed: <timeout>",
		OrderTotal: "14.50",
		Lines:      []AlertLine{{ProductID: "burger", Name: "Burger & Fries", Quantity: 2}},
	}
}

// ============================================
// Side Effect Alert Tests
// ============================================

func TestService_SendSideEffectFailure(t *testing.T) {
	s, sent := newTestService(nil)

	err := s.SendSideEffectFailure("staff@example.com", testAlert())

	require.NoError(t, err)
	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "mail.local:1025", mail.addr)
	assert.Equal(t, []string{"staff@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: [Action required] restock failed for order 0f3c9a7e\r\n")
	assert.Contains(t, mail.msg, "Content-Type: text/html")
}

func TestService_SendSideEffectFailure_SMTPError(t *testing.T) {
	s, _ := newTestService(errors.New("connection refused"))

	err := s.SendSideEffectFailure("staff@example.com", testAlert())

	assert.Error(t, err)
}

func TestBuildSideEffectFailureBody(t *testing.T) {
	body := BuildSideEffectFailureBody(testAlert())

	assert.Contains(t, body, "Status updated, but restock action failed")
	assert.Contains(t, body, "Burger &amp; Fries")
	assert.Contains(t, body, "&lt;timeout&gt;")
	assert.Contains(t, body, "14.50")
	assert.Contains(t, body, "/orders/0f3c9a7e-1111-2222-3333-444455556666/side-effects/restock/retry")
}

func TestBuildSideEffectFailureBody_NoLines(t *testing.T) {
	alert := testAlert()
	alert.Action = "pay"
	alert.Lines = nil
	alert.OrderTotal = ""

	body := BuildSideEffectFailureBody(alert)

	assert.False(t, strings.Contains(body, "<table"))
	assert.NotContains(t, body, "Order total")
}
