package mailstore

import (
	"fmt"
	"net/url"
)

// MessageURL renders an RFC 5092 locator for one message, suitable for
// CATENATE-style server-side concatenation.
func MessageURL(user, host string, ref MessageRef) string {
	return fmt.Sprintf("imap://%s@%s/%s;UIDVALIDITY=%d/;UID=%d",
		url.PathEscape(user), host, url.PathEscape(ref.Mailbox), ref.UIDValidity, ref.UID)
}

// PartURL renders an RFC 5092 locator for one body section of a message.
func PartURL(user, host string, ref PartRef) string {
	return MessageURL(user, host, ref.Message) + "/;SECTION=" + url.PathEscape(ref.Section)
}
