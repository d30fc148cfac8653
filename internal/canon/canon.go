// Package canon provides canonical JSON serialization and stable hashing
// used for MutationProposal.argsHash (§4.4) and GET-response ETags
// (§6), settling on RFC 8785 canonical JSON (sorted keys, no
// insignificant whitespace) via github.com/gowebpki/jcs for ETag key
// ordering, so any two implementations that canonicalize the same
// logical document agree on its hash.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JSON returns the RFC 8785 canonical-JSON encoding of v.
func JSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canon: canonicalize: %w", err)
	}
	return out, nil
}

// Hash returns the lowercase hex SHA-256 of v's canonical JSON encoding.
func Hash(v any) (string, error) {
	c, err := JSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(c)
	return hex.EncodeToString(sum[:]), nil
}

// ArgsHash computes the proposal idempotency key: the hash of
// {tool, args} canonicalised together, per §4.4.
func ArgsHash(tool string, args any) (string, error) {
	return Hash(struct {
		Tool string `json:"tool"`
		Args any    `json:"args"`
	}{Tool: tool, Args: args})
}

// WeakETag returns a weak ETag (`W/"<hash>"`) of data's canonical JSON,
// per §6 ("a weak ETag of the hash of data only").
func WeakETag(data any) (string, error) {
	h, err := Hash(data)
	if err != nil {
		return "", err
	}
	return `W/"` + h + `"`, nil
}
