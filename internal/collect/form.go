package collect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/recibo/internal/directory"
	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/receipt"
)

var (
	// ErrUnknownClient is returned when a form names no directory client.
	ErrUnknownClient = errors.New("unknown client")
	// ErrSignerNotAllowed is returned for a signer outside the configured list.
	ErrSignerNotAllowed = errors.New("signer not allowed")
)

// Form is a receipt request as written by a user, in a request file or an
// HTTP body.
type Form struct {
	Client   string              `json:"client" yaml:"client"` // directory label or numeric id
	Date     string              `json:"date,omitempty" yaml:"date,omitempty"`
	Signer   string              `json:"signer,omitempty" yaml:"signer,omitempty"`
	Concepts []model.ConceptLine `json:"concepts" yaml:"concepts"`
	Methods  []model.PaymentLine `json:"methods" yaml:"methods"`
}

// Request resolves the form against the client directory. An empty date
// means today. Dates are YYYY-MM-DD or DD-MM-YYYY.
func (f Form) Request(clients []model.Client, today time.Time) (Request, error) {
	client, err := resolveClient(clients, f.Client)
	if err != nil {
		return Request{}, err
	}

	date, err := parseDate(f.Date, today)
	if err != nil {
		return Request{}, err
	}

	return Request{
		Client:   client,
		Date:     date,
		Signer:   strings.TrimSpace(f.Signer),
		Concepts: f.Concepts,
		Payments: f.Methods,
	}, nil
}

func resolveClient(clients []model.Client, ref string) (model.Client, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Client{}, fmt.Errorf("%w: no client given", ErrUnknownClient)
	}
	if c, ok := directory.Resolve(clients, ref); ok {
		return c, nil
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, c := range clients {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return model.Client{}, fmt.Errorf("%w: %q", ErrUnknownClient, ref)
}

func parseDate(s string, today time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := today.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, today.Location()), nil
	}
	for _, layout := range []string{receipt.PayloadDateFormat, receipt.DisplayDateFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or DD-MM-YYYY", s)
}
