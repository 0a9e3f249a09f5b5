package compose

import "testing"

func TestParseAddress(t *testing.T) {
	t.Run("bare addr-spec", func(t *testing.T) {
		a, err := ParseAddress("jkt@example.org")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		want := Address{Mailbox: "jkt", Host: "example.org"}
		if a != want {
			t.Errorf("Expected %+v, got %+v", want, a)
		}
	})

	t.Run("display name with angle-addr", func(t *testing.T) {
		a, err := ParseAddress("Jan Novák <jan@example.org>")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if a.Name != "Jan Novák" {
			t.Errorf("Expected name %q, got %q", "Jan Novák", a.Name)
		}
		if a.Mailbox != "jan" || a.Host != "example.org" {
			t.Errorf("Expected jan@example.org, got %s@%s", a.Mailbox, a.Host)
		}
	})

	t.Run("quoted display name", func(t *testing.T) {
		a, err := ParseAddress(`"Doe, John" <jd@example.com>`)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if a.Name != "Doe, John" {
			t.Errorf("Expected name %q, got %q", "Doe, John", a.Name)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, err := ParseAddress("not an address"); err == nil {
			t.Error("Expected an error for input without an addr-spec")
		}
	})
}

func TestSMTPMailbox(t *testing.T) {
	a := Address{Name: "Jan", Mailbox: "jkt", Host: "example.org"}
	if got := a.SMTPMailbox(); got != "jkt@example.org" {
		t.Errorf("Expected jkt@example.org, got %q", got)
	}
}

func TestMailHeader(t *testing.T) {
	t.Run("empty name is just the angle-addr", func(t *testing.T) {
		a := Address{Mailbox: "jkt", Host: "example.org"}
		if got := a.MailHeader(); got != "<jkt@example.org>" {
			t.Errorf("Expected %q, got %q", "<jkt@example.org>", got)
		}
	})

	t.Run("plain atoms stay verbatim", func(t *testing.T) {
		a := Address{Name: "John Doe", Mailbox: "jd", Host: "example.com"}
		if got := a.MailHeader(); got != "John Doe <jd@example.com>" {
			t.Errorf("Expected %q, got %q", "John Doe <jd@example.com>", got)
		}
	})

	t.Run("specials get quoted", func(t *testing.T) {
		a := Address{Name: "John Q. Public", Mailbox: "jq", Host: "example.net"}
		want := `"John Q. Public" <jq@example.net>`
		if got := a.MailHeader(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("quotes and backslashes are escaped", func(t *testing.T) {
		a := Address{Name: `Say "hi" \ bye`, Mailbox: "s", Host: "example.net"}
		want := `"Say \"hi\" \\ bye" <s@example.net>`
		if got := a.MailHeader(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("non-ascii name becomes an encoded word", func(t *testing.T) {
		a := Address{Name: "Jan Kundrát", Mailbox: "jkt", Host: "example.org"}
		want := "=?utf-8?b?SmFuIEt1bmRyw6F0?= <jkt@example.org>"
		if got := a.MailHeader(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})
}
