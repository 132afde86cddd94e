package event

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DecodePayload restores the typed payload of a journaled event.
func DecodePayload(t Type, raw []byte) (any, error) {
	var (
		payload any
		err     error
	)
	switch t {
	case ChainStarted:
		var p ChainStartedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case CheckoutResubmitted:
		var p CheckoutResubmittedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ChainFinished:
		var p ChainFinishedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case CheckoutConfirmed:
		var p CheckoutConfirmedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, errors.Errorf("unknown event type %q", t)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed decode %s payload", t)
	}
	return payload, nil
}
