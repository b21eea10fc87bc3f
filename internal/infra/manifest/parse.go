package manifest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

// wire is the manifest's on-the-wire shape. Field names match
// case-insensitively (encoding/json semantics) and unrecognized extra
// fields are ignored. Only model_hash is range-checked.
type wire struct {
	Version   uint32 `json:"version"`
	ModelURL  string `json:"model_url"`
	ModelHash string `json:"model_hash"`
	ReportURL string `json:"report_url"`
}

// Parse decodes manifest source text into a domain.Manifest. The
// model_hash field must be base64 text decoding to exactly 32 bytes;
// that is enforced here, at the boundary where the digest is consumed
// for comparison.
func Parse(data []byte) (*domain.Manifest, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestParse, err)
	}

	hash, err := base64.StdEncoding.DecodeString(w.ModelHash)
	if err != nil {
		return nil, fmt.Errorf("%w: decode model_hash: %v", domain.ErrManifestParse, err)
	}
	if len(hash) != domain.DigestSize {
		return nil, fmt.Errorf("%w: got %d", domain.ErrBadDigestLength, len(hash))
	}

	m := &domain.Manifest{
		Version:   w.Version,
		ModelURL:  w.ModelURL,
		ReportURL: w.ReportURL,
	}
	copy(m.ModelDigest[:], hash)
	return m, nil
}
