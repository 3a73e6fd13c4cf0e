package model

import "fmt"

// Client is an account holder from the remote directory.
type Client struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
}

// Label is the display string used to pick a client: "Name (tax id)".
func (c Client) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.TaxID)
}
