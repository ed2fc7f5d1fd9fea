package replicate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 4096

// readError turns a non-success response into an error, preferring the
// service's own message fields over the raw body.
func readError(prefix string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		for _, msg := range []string{payload.Error, payload.Detail, payload.Title} {
			if strings.TrimSpace(msg) != "" {
				return fmt.Errorf("%s: %s", prefix, strings.TrimSpace(msg))
			}
		}
	}

	body := strings.TrimSpace(string(raw))
	if body == "" {
		body = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%s: status %d: %s", prefix, resp.StatusCode, body)
}
