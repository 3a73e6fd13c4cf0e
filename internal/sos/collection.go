package sos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cleared-dev/recibo/internal/model"
)

// NormalizeCollectionEndpoint points a bare collection root ("…/cobro" or
// "…/cobro/") at the synthetic id 0, which the API treats as "create". Other
// endpoints pass through. Returns "" for an unset endpoint.
func NormalizeCollectionEndpoint(endpoint string) string {
	e := strings.TrimRight(endpoint, " \t\r\n")
	if e == "" {
		return ""
	}
	if strings.HasSuffix(e, "/cobro") || strings.HasSuffix(e, "/cobro/") {
		return strings.TrimRight(e, "/") + "/0"
	}
	return e
}

// SubmitCollection PUTs rec to endpoint. An empty endpoint is local-only mode
// and returns (nil, nil) without contacting the API.
func (c *Client) SubmitCollection(ctx context.Context, endpoint string, rec model.CollectionRecord) (*model.SubmissionResult, error) {
	url := NormalizeCollectionEndpoint(endpoint)
	if url == "" {
		return nil, nil
	}

	var body map[string]any
	if err := c.do(ctx, http.MethodPut, url, c.submitTimeout, rec, &body); err != nil {
		return nil, fmt.Errorf("submitting collection: %w", err)
	}

	result := &model.SubmissionResult{Body: body}
	if raw, ok := body["id"]; ok && raw != nil {
		id, err := numberToInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("submitting collection: assigned id: %w", err)
		}
		result.ID = id
		result.Assigned = true
	}
	return result, nil
}

func numberToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case string:
		return json.Number(n).Int64()
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}
