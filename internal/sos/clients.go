package sos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cleared-dev/recibo/internal/model"
)

// UnnamedClient labels directory entries that carry no name.
const UnnamedClient = "Unnamed"

type clientItem struct {
	ID     flexInt `json:"id"`
	Clipro string  `json:"clipro"`
	Nombre string  `json:"nombre"`
	CUIT   string  `json:"cuit"`
}

func (it clientItem) toModel() model.Client {
	name := it.Clipro
	if name == "" {
		name = it.Nombre
	}
	if name == "" {
		name = UnnamedClient
	}
	return model.Client{ID: int64(it.ID), Name: name, TaxID: it.CUIT}
}

// ListClientsPage fetches one page (1-based) of the client/supplier listing.
func (c *Client) ListClientsPage(ctx context.Context, page, size int) ([]model.Client, error) {
	url := fmt.Sprintf("%s/cliente/listado?proveedor=true&cliente=true&pagina=%d&registros=%d", c.baseURL, page, size)

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, url, c.listTimeout, nil, &raw); err != nil {
		return nil, fmt.Errorf("listing clients page %d: %w", page, err)
	}

	items, err := decodeListing[clientItem](raw)
	if err != nil {
		return nil, fmt.Errorf("listing clients page %d: %w", page, err)
	}

	clients := make([]model.Client, len(items))
	for i, it := range items {
		clients[i] = it.toModel()
	}
	return clients, nil
}
