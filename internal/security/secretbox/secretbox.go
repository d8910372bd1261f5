// Package secretbox sella secretos (tokens de proveedor) antes de
// persistirlos, usando NaCl secretbox (XSalsa20-Poly1305).
//
// Formato del texto sellado: base64(nonce)|base64(ciphertext).
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keyLength = 32  // 32 bytes
	nonceSize = 24  // tamaño de nonce de NaCl
	sep       = "|" // nonce|ciphertext (ambos en base64)
)

// Box sella y abre secretos con una clave maestra fija. Se inyecta en el
// store; un Box nil significa persistir en claro (solo dev).
type Box struct {
	key [keyLength]byte
}

// New crea un Box desde una clave cruda de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("secretbox: la clave debe tener %d bytes, obtuvo %d", keyLength, len(key))
	}
	b := &Box{}
	copy(b.key[:], key)
	return b, nil
}

// FromBase64 crea un Box desde una clave en base64 (por ejemplo
// TOKEN_MASTER_KEY). Genere una con: openssl rand -base64 32
func FromBase64(b64 string) (*Box, error) {
	k, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode key: %w", err)
	}
	return New(k)
}

// Seal cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plainText string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}
	ct := secretbox.Seal(nil, []byte(plainText), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open recibe base64(nonce)|base64(ciphertext) y devuelve el texto plano.
func (b *Box) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, sep)
	if len(parts) != 2 {
		return "", errors.New("secretbox: formato inválido: esperado base64(nonce)|base64(ciphertext)")
	}
	nb, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("secretbox: decode nonce: %w", err)
	}
	if len(nb) != nonceSize {
		return "", fmt.Errorf("secretbox: nonce inválido: esperado %d bytes, obtuvo %d", nonceSize, len(nb))
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("secretbox: decode ciphertext: %w", err)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], nb)
	pt, ok := secretbox.Open(nil, ct, &nonce, &b.key)
	if !ok {
		return "", errors.New("secretbox: auth/decrypt falló")
	}
	return string(pt), nil
}
