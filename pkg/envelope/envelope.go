package envelope

import (
	"encoding/json"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/pkg/errors"
)

// Envelopes are compact JWS strings. Credentials travel unsigned
// (alg "none"); presentations are signed by the holder with ES256.
var (
	ErrEncoding         = errors.New("envelope encoding failed")
	ErrDecoding         = errors.New("envelope decoding failed")
	ErrKeyFormat        = errors.New("key material is malformed")
	ErrSigning          = errors.New("envelope signing failed")
	ErrSignatureInvalid = errors.New("envelope signature is invalid")
)

// Encode serializes a credential map into an unsigned transport envelope.
func Encode(doc map[string]interface{}) (string, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(ErrEncoding, err.Error())
	}
	out, err := jws.Sign(payload, jws.WithInsecureNoSignature())
	if err != nil {
		return "", errors.Wrap(ErrEncoding, err.Error())
	}
	return string(out), nil
}

// EncodeSigned serializes a credential map and signs it with the given
// PEM-encoded ES256 private key.
func EncodeSigned(doc map[string]interface{}, privPEM []byte) (string, error) {
	key, err := jwk.ParseKey(privPEM, jwk.WithPEM(true))
	if err != nil {
		return "", errors.Wrap(ErrKeyFormat, err.Error())
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(ErrEncoding, err.Error())
	}
	out, err := jws.Sign(payload, jws.WithKey(jwa.ES256, key))
	if err != nil {
		return "", errors.Wrap(ErrSigning, err.Error())
	}
	return string(out), nil
}

// Decode is the inverse of Encode. It does not check signatures.
func Decode(env string) (map[string]interface{}, error) {
	msg, err := jws.Parse([]byte(env))
	if err != nil {
		return nil, errors.Wrap(ErrDecoding, err.Error())
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &doc); err != nil {
		return nil, errors.Wrap(ErrDecoding, err.Error())
	}
	return doc, nil
}

// DecodeVerified is the inverse of EncodeSigned: the envelope signature is
// checked against the PEM-encoded public key before the payload is
// returned. A bad signature is reported distinctly from a malformed
// envelope.
func DecodeVerified(env string, pubPEM []byte) (map[string]interface{}, error) {
	key, err := jwk.ParseKey(pubPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, errors.Wrap(ErrKeyFormat, err.Error())
	}
	if _, err := jws.Parse([]byte(env)); err != nil {
		return nil, errors.Wrap(ErrDecoding, err.Error())
	}
	payload, err := jws.Verify([]byte(env), jws.WithKey(jwa.ES256, key))
	if err != nil {
		return nil, errors.Wrap(ErrSignatureInvalid, err.Error())
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, errors.Wrap(ErrDecoding, err.Error())
	}
	return doc, nil
}

// SignPayload signs an arbitrary JSON-serializable value as a compact JWS.
// Schemes use it to authenticate proof material (digest lists, tree roots)
// independently of the envelope itself.
func SignPayload(v interface{}, privPEM []byte) (string, error) {
	key, err := jwk.ParseKey(privPEM, jwk.WithPEM(true))
	if err != nil {
		return "", errors.Wrap(ErrKeyFormat, err.Error())
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(ErrEncoding, err.Error())
	}
	out, err := jws.Sign(payload, jws.WithKey(jwa.ES256, key))
	if err != nil {
		return "", errors.Wrap(ErrSigning, err.Error())
	}
	return string(out), nil
}

// VerifyPayload checks a compact JWS produced by SignPayload and
// deserializes its payload into out.
func VerifyPayload(token string, pubPEM []byte, out interface{}) error {
	key, err := jwk.ParseKey(pubPEM, jwk.WithPEM(true))
	if err != nil {
		return errors.Wrap(ErrKeyFormat, err.Error())
	}
	payload, err := jws.Verify([]byte(token), jws.WithKey(jwa.ES256, key))
	if err != nil {
		return errors.Wrap(ErrSignatureInvalid, err.Error())
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Wrap(ErrDecoding, err.Error())
	}
	return nil
}
