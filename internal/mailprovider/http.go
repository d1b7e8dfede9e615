package mailprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/inboxpilot/folderengine/pkg/metrics"
)

// apiError is the error envelope shared by both provider REST dialects.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doJSON executes one JSON request and decodes the response into out (when
// non-nil). Non-2xx responses become classified ProviderErrors; transport
// failures are transient.
func doJSON(ctx context.Context, client *http.Client, provider, operation, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &ProviderError{Provider: provider, Operation: operation, Kind: KindPermanent, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &ProviderError{Provider: provider, Operation: operation, Kind: KindPermanent, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(provider, operation, string(KindTransient)).Inc()
		return transportError(provider, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := readError(provider, operation, resp)
		metrics.ProviderCalls.WithLabelValues(provider, operation, string(perr.Kind)).Inc()
		return perr
	}

	metrics.ProviderCalls.WithLabelValues(provider, operation, "ok").Inc()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: provider, Operation: operation, Kind: KindPermanent, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func readError(provider, operation string, resp *http.Response) *ProviderError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope apiError
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		return statusError(provider, operation, resp.StatusCode, envelope.Error.Code, envelope.Error.Message)
	}

	return statusError(provider, operation, resp.StatusCode, "", strings.TrimSpace(string(raw)))
}

// isConflict recognises the provider-specific flavours of "already exists".
func isConflict(err error) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	if perr.StatusCode == http.StatusConflict {
		return true
	}
	return perr.Code == "ErrorFolderExists"
}
