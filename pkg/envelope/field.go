package envelope

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	ErrMissingField   = errors.New("reserved field is absent")
	ErrMalformedField = errors.New("reserved field has the wrong shape")
)

// SerializeField encodes an opaque value as a base64url(JSON) string so
// that scheme-specific proof material can live inside a claim map.
func SerializeField(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(ErrEncoding, err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DeserializeField is the exact inverse of SerializeField.
func DeserializeField(s string, out interface{}) error {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return errors.Wrap(ErrDecoding, err.Error())
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(ErrDecoding, err.Error())
	}
	return nil
}

// EncodeBinary encodes raw proof bytes (compressed curve points,
// signatures) as base64url.
func EncodeBinary(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBinary is the inverse of EncodeBinary.
func DecodeBinary(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrDecoding, err.Error())
	}
	return b, nil
}

// SetField returns a copy of doc with the named field set to the
// serialized form of v. The input map is never mutated.
func SetField(doc map[string]interface{}, field string, v interface{}) (map[string]interface{}, error) {
	encoded, err := SerializeField(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(doc)+1)
	for k, val := range doc {
		out[k] = val
	}
	out[field] = encoded
	return out, nil
}

// GetField extracts the named serialized field from doc into out.
func GetField(doc map[string]interface{}, field string, out interface{}) error {
	raw, ok := doc[field]
	if !ok {
		return errors.Wrapf(ErrMissingField, "field %q", field)
	}
	encoded, ok := raw.(string)
	if !ok {
		return errors.Wrapf(ErrMalformedField, "field %q is not a string", field)
	}
	return DeserializeField(encoded, out)
}
