package persistence

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
)

const stateFormatVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported session state version")

type envelope struct {
	Version int        `json:"version"`
	State   auth.State `json:"state"`
}

func encodeState(state auth.State) ([]byte, error) {
	data, err := json.Marshal(envelope{
		Version: stateFormatVersion,
		State:   state,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}

	return data, nil
}

func decodeState(data []byte) (*auth.State, error) {
	var e envelope
	err := json.Unmarshal(data, &e)
	if err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if e.Version != stateFormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, e.Version)
	}

	return &e.State, nil
}
