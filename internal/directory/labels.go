package directory

import (
	"strings"

	"github.com/cleared-dev/recibo/internal/model"
)

// Labels returns the display labels of clients, in order.
func Labels(clients []model.Client) []string {
	out := make([]string, len(clients))
	for i, c := range clients {
		out[i] = c.Label()
	}
	return out
}

// Resolve finds the client whose label is exactly label.
func Resolve(clients []model.Client, label string) (model.Client, bool) {
	for _, c := range clients {
		if c.Label() == label {
			return c, true
		}
	}
	return model.Client{}, false
}

// Search returns clients whose label contains q, ignoring case.
func Search(clients []model.Client, q string) []model.Client {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return clients
	}
	var out []model.Client
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.Label()), q) {
			out = append(out, c)
		}
	}
	return out
}
