package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Request  *Request
	Duration time.Duration
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}

	err := json.Unmarshal(r.Body, v)
	if err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}

	return nil
}
