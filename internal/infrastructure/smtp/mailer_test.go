package smtp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-auth-nosql/internal/application/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer speaks just enough SMTP to accept one message and returns what it received.
func fakeServer(t *testing.T) (host, port string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		write("220 localhost ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					write("250 OK")
					continue
				}
				data.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"):
				write("250 localhost")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				write("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				out <- data.String()
				return
			default:
				write("250 OK")
			}
		}
	}()
	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return h, p, out
}

func TestMailer_Send(t *testing.T) {
	host, port, received := fakeServer(t)
	m := &Mailer{host: host, port: port, from: "no-reply@example.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Send(ctx, notification.Message{To: "a@x.io", Subject: "Verify your email", HTML: "<p>123456</p>"})
	require.NoError(t, err)

	body := <-received
	assert.Contains(t, body, "To: a@x.io")
	assert.Contains(t, body, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, body, "<p>123456</p>")
}

func TestMailer_DeadlineBoundsSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			time.Sleep(2 * time.Second)
			conn.Close()
		}
	}()
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	m := &Mailer{host: host, port: port, from: "no-reply@example.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = m.Send(ctx, notification.Message{To: "a@x.io"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCompose_EncodesSubject(t *testing.T) {
	m := &Mailer{from: "no-reply@example.com"}
	raw := string(m.compose(notification.Message{To: "a@x.io", Subject: "Bienvenue à bord", HTML: "x"}))
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nx"))
}
