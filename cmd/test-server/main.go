// Command test-server runs in-process IMAP and SMTP servers seeded with a
// few messages, so the compose CLI can be exercised against live servers
// without touching a real account. Submissions landing in the SMTP sink are
// logged as they arrive.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honzito/trojita/internal/testutil"
)

func main() {
	imapAddr := flag.String("imap", "127.0.0.1:1143", "IMAP listen address")
	smtpAddr := flag.String("smtp", "127.0.0.1:1025", "SMTP listen address")
	flag.Parse()

	imapServer, smtpServer, err := startMailServers(*imapAddr, *smtpAddr)
	if err != nil {
		log.Fatalf("Failed to start mail servers: %v", err)
	}
	defer imapServer.Close()
	defer smtpServer.Close()

	reportUID, err := seedTestData(imapServer)
	if err != nil {
		log.Fatalf("Failed to seed test data: %v", err)
	}

	printUsage(imapServer, smtpServer, reportUID)
	waitForShutdown(smtpServer)
}

// startMailServers starts the in-process IMAP and SMTP servers.
func startMailServers(imapAddr, smtpAddr string) (*testutil.TestIMAPServer, *testutil.TestSMTPServer, error) {
	log.Println("Starting test IMAP server...")
	imapServer, err := testutil.NewTestIMAPServerOn(imapAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start test IMAP server: %w", err)
	}
	log.Printf("Test IMAP server started on %s", imapServer.Address)

	log.Println("Starting test SMTP server...")
	smtpServer, err := testutil.NewTestSMTPServerOn(smtpAddr)
	if err != nil {
		imapServer.Close()
		return nil, nil, fmt.Errorf("failed to start test SMTP server: %w", err)
	}
	log.Printf("Test SMTP server started on %s", smtpServer.Address)

	return imapServer, smtpServer, nil
}

// seedTestData fills INBOX with messages the compose CLI can reference and
// returns the UID of the one carrying a PDF part in section 2.
func seedTestData(imapServer *testutil.TestIMAPServer) (uint32, error) {
	messages := []struct {
		messageID string
		subject   string
		from      string
		body      string
		sentAt    time.Time
	}{
		{
			messageID: "<welcome@playground>",
			subject:   "Welcome to the playground",
			from:      "owner@example.com",
			body:      "Forward me, or attach me to a draft with -attach-message.",
			sentAt:    time.Now().Add(-2 * time.Hour),
		},
		{
			messageID: "<itinerary@playground>",
			subject:   "Travel itinerary",
			from:      "trips@example.com",
			body:      "Flight OK451 departs at 09:40, gate B12. Check in online.",
			sentAt:    time.Now().Add(-1 * time.Hour),
		},
	}

	for _, msg := range messages {
		raw := fmt.Sprintf("Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"From: %s\r\n"+
			"To: test@example.com\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=utf-8\r\n"+
			"\r\n"+
			"%s\r\n",
			msg.messageID, msg.sentAt.Format(time.RFC1123Z), msg.from, msg.subject, msg.body)
		uid, err := imapServer.Seed("INBOX", msg.messageID, raw)
		if err != nil {
			return 0, fmt.Errorf("failed to add message %s: %w", msg.messageID, err)
		}
		log.Printf("Seeded INBOX uid %d: %s", uid, msg.subject)
	}

	reportUID, err := imapServer.Seed("INBOX", "<report@playground>", reportMessage())
	if err != nil {
		return 0, fmt.Errorf("failed to add the report message: %w", err)
	}
	log.Printf("Seeded INBOX uid %d: Quarterly report (PDF in section 2)", reportUID)
	return reportUID, nil
}

// reportMessage is a multipart message with a base64 PDF part, so the
// -attach-part flag has something real to point at.
func reportMessage() string {
	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 playground report payload"))
	return "Message-ID: <report@playground>\r\n" +
		"Date: " + time.Now().Format(time.RFC1123Z) + "\r\n" +
		"From: reports@example.com\r\n" +
		"To: test@example.com\r\n" +
		"Subject: Quarterly report\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"playground\"\r\n" +
		"\r\n" +
		"--playground\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"The report is attached.\r\n" +
		"--playground\r\n" +
		"Content-Type: application/pdf; name=\"report.pdf\"\r\n" +
		"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		payload + "\r\n" +
		"--playground--\r\n"
}

func printUsage(imapServer *testutil.TestIMAPServer, smtpServer *testutil.TestSMTPServer, reportUID uint32) {
	host, port, err := net.SplitHostPort(imapServer.Address)
	if err != nil {
		host, port = imapServer.Address, "143"
	}

	log.Printf("Test IMAP server: %s (username: %s, password: %s)", imapServer.Address, imapServer.Username(), imapServer.Password())
	log.Printf("Test SMTP server: %s (accepts any credentials)", smtpServer.Address)
	log.Println("Point the compose CLI at it:")
	log.Printf("  export TROJITA_IMAP_HOST=%s TROJITA_IMAP_PORT=%s TROJITA_IMAP_USER=%s TROJITA_IMAP_PASSWORD=%s",
		host, port, imapServer.Username(), imapServer.Password())
	log.Printf("  compose -from you@example.com -to test@example.com -subject report -attach-part INBOX:1:%d:2 <<< 'see attachment'", reportUID)
	log.Println("Server ready. Press Ctrl+C to stop.")
}

// waitForShutdown blocks until SIGINT or SIGTERM, logging every submission
// the SMTP sink receives in the meantime.
func waitForShutdown(smtpServer *testutil.TestSMTPServer) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	seen := 0
	for {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal %v, shutting down...", sig)
			return
		case <-ticker.C:
			messages := smtpServer.Messages()
			for ; seen < len(messages); seen++ {
				msg := messages[seen]
				log.Printf("SMTP sink received %d bytes from %s to %v", len(msg.Data), msg.From, msg.To)
			}
		}
	}
}
