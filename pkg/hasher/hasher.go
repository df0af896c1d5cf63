// Package hasher transforma contraseñas en digests almacenables y las verifica.
//
// El esquema sha256 reproduce los digests heredados: hex de SHA-256 sin sal, de longitud fija
// (64). Es determinista y por tanto vulnerable a tablas precalculadas; se mantiene para que los
// digests existentes sigan verificando. El esquema bcrypt (por defecto) añade sal y coste.
// Ambos verificadores aceptan los dos formatos almacenados.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produce y verifica digests de contraseñas.
type Hasher interface {
	Hash(secret string) (string, error)
	// Matches compara secret contra el digest almacenado en tiempo constante.
	Matches(secret, storedDigest string) bool
}

// New devuelve el hasher para el esquema dado ("bcrypt" o "sha256").
func New(scheme string, bcryptCost int) (Hasher, error) {
	switch scheme {
	case "", "bcrypt":
		if bcryptCost == 0 {
			bcryptCost = bcrypt.DefaultCost
		}
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("hasher: coste bcrypt fuera de rango: %d", bcryptCost)
		}
		return Bcrypt{Cost: bcryptCost}, nil
	case "sha256":
		return SHA256{}, nil
	default:
		return nil, fmt.Errorf("hasher: esquema desconocido %q", scheme)
	}
}

// Digest hex de SHA-256 sin sal.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifyDigest compara dos digests en tiempo constante; true solo si son idénticos.
func VerifyDigest(candidate, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1
}

// IsLegacyDigest reconoce el formato hex de 64 caracteres.
func IsLegacyDigest(d string) bool {
	if len(d) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(d)
	return err == nil
}

// SHA256 esquema heredado.
type SHA256 struct{}

func (SHA256) Hash(secret string) (string, error) { return Digest(secret), nil }

func (SHA256) Matches(secret, stored string) bool { return matches(secret, stored) }

// Bcrypt esquema con sal.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(secret), b.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(out), nil
}

func (Bcrypt) Matches(secret, stored string) bool { return matches(secret, stored) }

func matches(secret, stored string) bool {
	switch {
	case stored == "":
		return false
	case strings.HasPrefix(stored, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	case IsLegacyDigest(stored):
		return VerifyDigest(Digest(secret), strings.ToLower(stored))
	default:
		return false
	}
}
