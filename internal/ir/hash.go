package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration.
const (
	DomainDecl   = "varro/decl/v1"
	DomainModule = "varro/module/v1"
)

// hashWithDomain computes SHA-256 with domain separation. The null
// byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DeclHash returns the content hash of a declaration's canonical
// encoding. Two declarations with the same hash are identical in every
// way compatibility analysis cares about.
func DeclHash(d *Decl) (string, error) {
	plain, err := toPlain(d)
	if err != nil {
		return "", err
	}
	data, err := MarshalCanonical(plain)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainDecl, data), nil
}

// ModuleHash returns the content hash of a module snapshot.
func ModuleHash(m *Module) (string, error) {
	data, err := Snapshot(m)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainModule, data), nil
}
