package accounts

import (
	"fmt"
	"os"

	"github.com/cleared-dev/recibo/internal/model"
)

// Service provides lookup over the configured account table. Order is the
// configured order and is what pickers show.
type Service struct {
	accounts []model.Account
	byName   map[string]model.Account
}

// NewService creates a Service from a slice of accounts. Later duplicates of a
// name are ignored.
func NewService(accounts []model.Account) *Service {
	byName := make(map[string]model.Account, len(accounts))
	var ordered []model.Account
	for _, a := range accounts {
		if _, dup := byName[a.Name]; dup {
			continue
		}
		byName[a.Name] = a
		ordered = append(ordered, a)
	}
	return &Service{accounts: ordered, byName: byName}
}

// LoadFile reads an account table CSV from path and returns a Service.
func LoadFile(path string) (*Service, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening account table: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading account table: %w", err)
	}
	return NewService(accts), nil
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Names returns the display names in configured order.
func (s *Service) Names() []string {
	names := make([]string, len(s.accounts))
	for i, a := range s.accounts {
		names[i] = a.Name
	}
	return names
}

// LedgerID returns the ledger account id for a display name.
func (s *Service) LedgerID(name string) (int64, bool) {
	a, ok := s.byName[name]
	return a.LedgerID, ok
}

// Exists reports whether a display name is configured.
func (s *Service) Exists(name string) bool {
	_, ok := s.byName[name]
	return ok
}
