// Package adapter defines the uniform contract every selective-disclosure
// scheme implements: the same issue/verify lifecycle over credential maps
// and envelope strings, regardless of the underlying mechanism.
package adapter

// Adapter levels heterogeneous schemes to a single calling convention.
// Implementations are safe for concurrent use after construction: key
// material is read-only once the instance exists.
type Adapter interface {

	// Name identifies the scheme ("SD-JWT", "CSD-JWT", "Merkle", "BBS+").
	Name() string

	// IssueCredential turns a raw credential into a verifiable credential
	// and its transport envelope.
	IssueCredential(raw map[string]interface{}) (map[string]interface{}, string, error)

	// VerifyCredential validates the proof material of a full credential
	// against the issuer public key.
	VerifyCredential(vc map[string]interface{}) error

	// IssuePresentation filters the credential to the disclosed claim
	// keys and signs the result with the holder key.
	IssuePresentation(vc map[string]interface{}, disclosed []string) (map[string]interface{}, string, error)

	// VerifyPresentation checks the holder signature and the disclosed
	// claims' proof material. It never requires undisclosed claim values.
	VerifyPresentation(envelope string) error

	// IssuerKeyMaterial exports the issuer key pair encodings for key-size
	// measurement.
	IssuerKeyMaterial() (pub string, priv string, err error)
}
