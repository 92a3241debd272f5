// Package securestore persists small secrets (session tokens, the
// cached profile) in an encrypted file. Keys are derived from a
// passphrase with scrypt; values are sealed with nacl secretbox.
package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLen  = 16
	nonceLen = 24
	keyLen   = 32
)

var ErrNotFound = errors.New("securestore: key not found")

type Store struct {
	path string
	key  [keyLen]byte
	salt []byte

	mu     sync.Mutex
	values map[string]string
}

// Open loads (or initializes) the store file at path. The passphrase is
// stretched with scrypt; the salt lives in the file header so the same
// passphrase reopens an existing store.
func Open(path, passphrase string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.salt = make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, s.salt); err != nil {
			return nil, fmt.Errorf("securestore.Open: salt: %v", err)
		}
		if err := s.deriveKey(passphrase); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("securestore.Open: %v", err)
	}
	if len(raw) < saltLen+nonceLen {
		return nil, fmt.Errorf("securestore.Open: file too short")
	}

	s.salt = raw[:saltLen]
	if err := s.deriveKey(passphrase); err != nil {
		return nil, err
	}

	var nonce [nonceLen]byte
	copy(nonce[:], raw[saltLen:saltLen+nonceLen])
	plain, ok := secretbox.Open(nil, raw[saltLen+nonceLen:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("securestore.Open: wrong passphrase or corrupt store")
	}
	if err := json.Unmarshal(plain, &s.values); err != nil {
		return nil, fmt.Errorf("securestore.Open: json.Unmarshal: %v", err)
	}
	return s, nil
}

func (s *Store) deriveKey(passphrase string) error {
	key, err := scrypt.Key([]byte(passphrase), s.salt, 1<<15, 8, 1, keyLen)
	if err != nil {
		return fmt.Errorf("securestore: scrypt: %v", err)
	}
	copy(s.key[:], key)
	return nil
}

// Get returns the stored value for key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores a value and writes the file through.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.flush()
}

// Delete removes a key and writes the file through. Deleting a missing
// key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return s.flush()
}

// flush seals the value map and replaces the store file atomically.
// Callers hold s.mu.
func (s *Store) flush() error {
	plain, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("securestore.flush: json.Marshal: %v", err)
	}

	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("securestore.flush: nonce: %v", err)
	}

	out := make([]byte, 0, saltLen+nonceLen+len(plain)+secretbox.Overhead)
	out = append(out, s.salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plain, &nonce, &s.key)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("securestore.flush: mkdir: %v", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("securestore.flush: write: %v", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("securestore.flush: rename: %v", err)
	}
	return nil
}
