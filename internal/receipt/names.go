package receipt

import (
	"regexp"
	"strings"
)

// TaxID extracts the text inside the trailing parenthesis of a client label,
// "ACME SA (30-1234)" -> "30-1234". Returns "" when there is none.
func TaxID(label string) string {
	i := strings.LastIndex(label, "(")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(label[i+1:], ") "))
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is the download name of a receipt document:
// receipt_<number or sentinel>_<DD-MM-YYYY>.pdf.
func FileName(number, displayDate string) string {
	num := strings.Trim(unsafeFileChars.ReplaceAllString(number, "_"), "_")
	date := strings.Trim(unsafeFileChars.ReplaceAllString(displayDate, "_"), "_")
	return "receipt_" + num + "_" + date + ".pdf"
}
