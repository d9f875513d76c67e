package delivery

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts a single session and records the envelope and data.
type fakeSMTP struct {
	ln   net.Listener
	wg   sync.WaitGroup
	from string
	rcpt []string
	data string
}

func startFakeSMTP(t *testing.T, rejectRcpt bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTP{ln: ln}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		s.serve(conn, rejectRcpt)
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeSMTP) serve(conn net.Conn, rejectRcpt bool) {
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(cmd)
		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.from = strings.Trim(cmd[len("MAIL FROM:"):], "<> ")
			reply("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			if rejectRcpt {
				reply("550 no such user")
				continue
			}
			s.rcpt = append(s.rcpt, strings.Trim(cmd[len("RCPT TO:"):], "<> "))
			reply("250 OK")
		case upper == "DATA":
			reply("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.data = b.String()
			reply("250 queued")
		case upper == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	srv := startFakeSMTP(t, false)
	m := NewSMTPMailer(srv.ln.Addr().String(), "", "", time.Second)

	msg, err := ComposeMessage("web@abateiq.com", "sales@abateiq.com", contact())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Send(ctx, "web@abateiq.com", []string{"sales@abateiq.com"}, msg))

	srv.wg.Wait()
	assert.Equal(t, "web@abateiq.com", srv.from)
	assert.Equal(t, []string{"sales@abateiq.com"}, srv.rcpt)
	assert.Contains(t, srv.data, "Subject: New AbateIQ demo request: Acme")
	assert.Contains(t, srv.data, "Primary Hazard: acm")
}

func TestSMTPMailer_RcptRejected(t *testing.T) {
	srv := startFakeSMTP(t, true)
	m := NewSMTPMailer(srv.ln.Addr().String(), "", "", time.Second)

	err := m.Send(context.Background(), "a@b.co", []string{"nobody@b.co"}, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp rcpt")
}

func TestSMTPMailer_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()

	err = NewSMTPMailer(addr, "", "", 200*time.Millisecond).Send(context.Background(), "a@b.co", []string{"c@d.co"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp dial")
}
