package scan

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reExactID = regexp.MustCompile(`^(FOOD|ELEC|CLTH|BOOK|HOME|SPRT)\d{3}$`)
	reAnyID   = regexp.MustCompile(`(?i)(FOOD|ELEC|CLTH|BOOK|HOME|SPRT)\d{3}`)
	reAlnum   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// DecodeQR returns the candidate carried by a QR code. QR codes are printed with
// the bare product id, so the text is the candidate.
func DecodeQR(text string) (string, bool) {
	return text, text != ""
}

// DecodeNFC walks the records in order and returns the first candidate found.
func DecodeNFC(msg Message) (string, bool) {
	for _, rec := range msg.Records {
		var (
			id string
			ok bool
		)
		switch rec.RecordType {
		case RecordText:
			id, ok = decodeText(rec.Data)
		case RecordURL:
			id, ok = decodeURL(rec.Data)
		}
		if ok {
			return id, true
		}
	}
	return "", false
}

// decodeText strips the NDEF status byte and language code when present, then
// looks for an id. Payloads that are not valid UTF-8 are searched byte by byte.
func decodeText(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return findID(latin1(data))
	}
	body := data
	if len(data) > 0 && data[0] < 32 {
		start := 1 + int(data[0]&0x3f)
		if start > len(data) {
			start = len(data)
		}
		body = data[start:]
	}
	if !utf8.Valid(body) {
		return findID(latin1(data))
	}
	clean := strings.ToUpper(strings.TrimSpace(string(body)))
	if reExactID.MatchString(clean) {
		return clean, true
	}
	return findID(clean)
}

func decodeURL(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	u := strings.TrimSpace(string(data))
	seg := u[strings.LastIndex(u, "/")+1:]
	if !reAlnum.MatchString(seg) {
		return "", false
	}
	seg = strings.ToUpper(seg)
	return seg, reExactID.MatchString(seg)
}

func findID(s string) (string, bool) {
	m := reAnyID.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}

// latin1 maps every byte to the rune with the same code point.
func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
