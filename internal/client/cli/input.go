package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errEmptyAmount = errors.New("jumlah kosong")

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword prints a password prompt to w and reads a password
// from the user's terminal without echo.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Masukkan password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// ParseAmount reads a rupiah amount written the Indonesian way: "." groups
// thousands and "," starts the fraction. A leading "Rp" is ignored, so
// "Rp 1.000.000" and "1000000" are both one million.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = s[2:]
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, errEmptyAmount
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("jumlah tidak valid: %q", s)
	}
	return d.InexactFloat64(), nil
}

// FormatAmount renders v as "Rp 1.200.000".
func FormatAmount(v float64) string {
	d := decimal.NewFromFloat(v).Round(0)
	digits := d.Abs().String()

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if d.IsNegative() {
		return "Rp -" + b.String()
	}
	return "Rp " + b.String()
}
