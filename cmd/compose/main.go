package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/honzito/trojita/internal/compose"
	"github.com/honzito/trojita/internal/config"
	"github.com/honzito/trojita/internal/imapstore"
	"github.com/honzito/trojita/internal/mailstore"
)

// stringList collects the values of a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ", ") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	var (
		to             stringList
		cc             stringList
		bcc            stringList
		attachFiles    stringList
		attachMessages stringList
		attachParts    stringList
	)
	fromFlag := flag.String("from", "", "Sender address (defaults to TROJITA_FROM_ADDRESS)")
	flag.Var(&to, "to", "Recipient address (repeatable)")
	flag.Var(&cc, "cc", "Carbon-copy address (repeatable)")
	flag.Var(&bcc, "bcc", "Blind-copy address (repeatable)")
	subject := flag.String("subject", "", "Subject line")
	bodyFile := flag.String("body-file", "-", "File holding the message text, - for stdin")
	flag.Var(&attachFiles, "attach", "File to attach (repeatable)")
	flag.Var(&attachMessages, "attach-message", "Message to attach, as MAILBOX:UIDVALIDITY:UID (repeatable)")
	flag.Var(&attachParts, "attach-part", "Message part to attach, as MAILBOX:UIDVALIDITY:UID:SECTION (repeatable)")
	catenate := flag.Bool("catenate", false, "Print the CATENATE fragment listing instead of the raw message")
	organization := flag.String("organization", "", "Organization header (defaults to TROJITA_ORGANIZATION)")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	composer, store, cleanup := newComposer(cfg, len(attachMessages)+len(attachParts) > 0)
	defer cleanup()

	from, err := senderAddress(*fromFlag, cfg)
	if err != nil {
		log.Fatalf("Failed to determine the sender: %v", err)
	}
	composer.SetFrom(from)

	recipients, err := parseRecipients(to, cc, bcc)
	if err != nil {
		log.Fatalf("Failed to parse recipients: %v", err)
	}
	composer.SetRecipients(recipients)

	composer.SetSubject(*subject)
	if *organization != "" {
		composer.SetOrganization(*organization)
	} else {
		composer.SetOrganization(cfg.Organization)
	}
	composer.SetReportVersions(cfg.RevealVersions)

	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		composer.SetTimestamp(time.Now().In(loc))
	} else {
		log.Printf("Ignoring unknown timezone %q: %v", cfg.Timezone, err)
	}

	body, err := readBody(*bodyFile)
	if err != nil {
		log.Fatalf("Failed to read the message text: %v", err)
	}
	composer.SetText(body)

	if err := addAttachments(composer, store, attachFiles, attachMessages, attachParts, *catenate); err != nil {
		log.Fatalf("Failed to attach: %v", err)
	}

	if *catenate {
		fragments, err := composer.Catenate()
		if err != nil {
			log.Fatalf("Failed to serialize message: %v", err)
		}
		printFragments(fragments)
		return
	}

	if err := composer.WriteRaw(os.Stdout); err != nil {
		log.Fatalf("Failed to serialize message: %v", err)
	}
}

// newComposer builds the composition session and, when referential
// attachments were requested, the live IMAP store behind it.
func newComposer(cfg *config.Config, needsAccount bool) (*compose.Composer, mailstore.Store, func()) {
	if !needsAccount {
		memory := mailstore.NewMemory()
		return compose.NewComposer(memory), memory, func() {}
	}

	if !cfg.HasAccount() {
		log.Fatalf("Referential attachments need an IMAP account; set TROJITA_IMAP_HOST, TROJITA_IMAP_USER and TROJITA_IMAP_PASSWORD")
	}

	c, err := dial(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.IMAPAddr(), err)
	}
	if err := c.Login(cfg.IMAPUsername, cfg.IMAPPassword); err != nil {
		log.Fatalf("Failed to log in: %v", err)
	}

	store := imapstore.New(c)
	store.EnableURLs(cfg.IMAPUsername, cfg.IMAPHost)
	cleanup := func() {
		if err := c.Logout(); err != nil {
			log.Printf("Failed to log out: %v", err)
		}
	}
	return compose.NewComposer(store), store, cleanup
}

func dial(cfg *config.Config) (*client.Client, error) {
	if cfg.IMAPPort == "993" {
		return client.DialTLS(cfg.IMAPAddr(), nil)
	}
	return client.Dial(cfg.IMAPAddr())
}

func senderAddress(fromFlag string, cfg *config.Config) (compose.Address, error) {
	if fromFlag != "" {
		return compose.ParseAddress(fromFlag)
	}
	if cfg.FromAddress == "" {
		return compose.Address{}, fmt.Errorf("no sender; pass -from or set TROJITA_FROM_ADDRESS")
	}
	from, err := compose.ParseAddress(cfg.FromAddress)
	if err != nil {
		return compose.Address{}, err
	}
	if from.Name == "" {
		from.Name = cfg.FromName
	}
	return from, nil
}

func parseRecipients(to, cc, bcc stringList) ([]compose.Recipient, error) {
	var recipients []compose.Recipient
	add := func(kind compose.RecipientKind, values stringList) error {
		for _, value := range values {
			address, err := compose.ParseAddress(value)
			if err != nil {
				return fmt.Errorf("%s address %q: %w", kind, value, err)
			}
			recipients = append(recipients, compose.Recipient{Kind: kind, Address: address})
		}
		return nil
	}
	if err := add(compose.RecipientTo, to); err != nil {
		return nil, err
	}
	if err := add(compose.RecipientCc, cc); err != nil {
		return nil, err
	}
	if err := add(compose.RecipientBcc, bcc); err != nil {
		return nil, err
	}
	return recipients, nil
}

func readBody(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// addAttachments installs the requested attachments. Referenced content is
// fetched synchronously so the raw stream can embed it; the catenate mode
// leaves it on the server and emits URL fragments instead.
func addAttachments(composer *compose.Composer, store mailstore.Store, files, messages, parts stringList, catenate bool) error {
	for _, path := range files {
		if err := composer.AddFileAttachment(path); err != nil {
			return err
		}
	}

	live, _ := store.(*imapstore.Store)
	for _, spec := range messages {
		ref, err := parseMessageSpec(spec)
		if err != nil {
			return err
		}
		if err := composer.AddMessageAttachment(ref); err != nil {
			return err
		}
		if !catenate {
			if err := live.FetchMessage(ref); err != nil {
				return fmt.Errorf("fetch %s: %w", spec, err)
			}
		}
	}
	for _, spec := range parts {
		ref, err := parsePartSpec(spec)
		if err != nil {
			return err
		}
		if err := composer.AddPartAttachment(ref); err != nil {
			return err
		}
		if !catenate {
			if err := live.FetchPart(ref); err != nil {
				return fmt.Errorf("fetch %s: %w", spec, err)
			}
		}
	}
	return nil
}

// parseMessageSpec splits MAILBOX:UIDVALIDITY:UID from the right, so mailbox
// names containing colons stay intact.
func parseMessageSpec(spec string) (mailstore.MessageRef, error) {
	rest, uidField, ok := cutLast(spec)
	if !ok {
		return mailstore.MessageRef{}, fmt.Errorf("bad message reference %q: want MAILBOX:UIDVALIDITY:UID", spec)
	}
	mailbox, uvField, ok := cutLast(rest)
	if !ok || mailbox == "" {
		return mailstore.MessageRef{}, fmt.Errorf("bad message reference %q: want MAILBOX:UIDVALIDITY:UID", spec)
	}
	uidValidity, err := strconv.ParseUint(uvField, 10, 32)
	if err != nil {
		return mailstore.MessageRef{}, fmt.Errorf("bad UIDVALIDITY in %q: %w", spec, err)
	}
	uid, err := strconv.ParseUint(uidField, 10, 32)
	if err != nil {
		return mailstore.MessageRef{}, fmt.Errorf("bad UID in %q: %w", spec, err)
	}
	return mailstore.MessageRef{Mailbox: mailbox, UIDValidity: uint32(uidValidity), UID: uint32(uid)}, nil
}

func parsePartSpec(spec string) (mailstore.PartRef, error) {
	rest, section, ok := cutLast(spec)
	if !ok || section == "" {
		return mailstore.PartRef{}, fmt.Errorf("bad part reference %q: want MAILBOX:UIDVALIDITY:UID:SECTION", spec)
	}
	message, err := parseMessageSpec(rest)
	if err != nil {
		return mailstore.PartRef{}, err
	}
	return mailstore.PartRef{Message: message, Section: section}, nil
}

func cutLast(s string) (before, after string, found bool) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func printFragments(fragments []compose.Fragment) {
	for _, fragment := range fragments {
		switch fragment.Kind {
		case compose.FragmentURL:
			fmt.Printf("URL %s\n", fragment.Data)
		default:
			fmt.Printf("TEXT %d bytes\n", len(fragment.Data))
			_, _ = os.Stdout.Write(fragment.Data)
			fmt.Println()
		}
	}
}
