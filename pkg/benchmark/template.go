package benchmark

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/suutaku/go-vc/pkg/credential"

	"github.com/suutaku/go-sdvc/pkg/claims"
)

// rawVC is the credential template every measurement starts from. The
// claim-set is replaced with mock claims before each run.
const rawVC = `{
	"@context": [
		"https://www.w3.org/2018/credentials/v1",
		"https://www.w3.org/2018/credentials/examples/v1"
	],
	"id": "https://issuer.example/credentials/3732",
	"type": ["VerifiableCredential", "UniversityDegreeCredential"],
	"issuer": "https://issuer.example/issuers/14",
	"issuanceDate": "2010-01-01T19:23:24Z",
	"credentialSubject": {
		"id": "did:example:ebfeb1f712ebc6f1c276e12ec21",
		"degree": "Bachelor of Science and Arts"
	}
}`

// LoadRawCredential parses the template through the credential model
// and returns it as a mutable document.
func LoadRawCredential() (map[string]interface{}, error) {
	cred := credential.NewCredential()
	if err := cred.FromBytes([]byte(rawVC)); err != nil {
		return nil, errors.Wrap(err, "parse credential template")
	}
	return cred.ToMap(), nil
}

// MockClaims returns a claim-set of n synthetic claims.
func MockClaims(n int) map[string]interface{} {
	set := make(map[string]interface{}, n)
	for i := 1; i <= n; i++ {
		set[fmt.Sprintf("Claim Key %d", i)] = fmt.Sprintf("Claim Value %d", i)
	}
	return set
}

// MockDisclosures names the first n mock claims.
func MockDisclosures(n int) []string {
	disclosed := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		disclosed = append(disclosed, fmt.Sprintf("Claim Key %d", i))
	}
	return disclosed
}

// WithMockClaims replaces the claim-set of doc with n synthetic claims.
func WithMockClaims(doc map[string]interface{}, n int) map[string]interface{} {
	return claims.With(doc, MockClaims(n))
}
