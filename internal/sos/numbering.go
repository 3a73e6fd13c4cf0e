package sos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RecentWindow is how many of the current period's collections the number
// lookup scans.
const RecentWindow = 1000

type collectionItem struct {
	ID      flexInt    `json:"id"`
	Factura flexString `json:"factura"`
}

// ResolveReceiptNumber looks up the human-facing receipt number the remote
// system assigned to submission id. It scans the most recent collections of
// the current period only, so a record outside that window reports
// found=false rather than an error.
func (c *Client) ResolveReceiptNumber(ctx context.Context, id int64) (number string, found bool, err error) {
	url := fmt.Sprintf("%s/cobro/listado/mes?pagina=1&registros=%d", c.baseURL, RecentWindow)

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, url, c.listTimeout, nil, &raw); err != nil {
		return "", false, fmt.Errorf("listing recent collections: %w", err)
	}

	items, err := decodeListing[collectionItem](raw)
	if err != nil {
		return "", false, fmt.Errorf("listing recent collections: %w", err)
	}

	for _, it := range items {
		if int64(it.ID) != id {
			continue
		}
		if it.Factura == "" {
			return "", false, nil
		}
		return string(it.Factura), true, nil
	}
	return "", false, nil
}
