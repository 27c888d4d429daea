package client

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is the shape of every backend response.
type Envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decoding envelope")
	}
	if env.Code == nil {
		return Envelope{}, errors.New("envelope has no code")
	}
	return env, nil
}

// Unmarshal decodes the data of a successful call into T. It passes err
// through untouched so calls can be wrapped directly:
//
//	pages, err := client.Unmarshal[[]Page](c.Get(ctx, "/docs/list"))
func Unmarshal[T any](data json.RawMessage, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Wrapf(err, "decoding data into %T", v)
	}
	return v, nil
}
