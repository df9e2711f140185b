package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound indicates no token cache exists at the given path.
	ErrNotFound = errors.New("auth: token cache not found")

	// ErrCorrupt indicates the cache exists but cannot be decoded into a
	// token. Both conditions are recovered by performing a live auth.
	ErrCorrupt = errors.New("auth: token cache corrupt")
)

// Store persists tokens between runs.
type Store interface {
	Load(path string) (*Token, error)
	Save(path string, tok *Token) error
}

// FileStore keeps the token as a JSON object on disk. Fields other than
// "token" and "exp" round-trip untouched.
//
// A single run reads the cache once and writes it at most once. Concurrent
// runs sharing one cache path are not guarded against; point them at
// separate files.
type FileStore struct{}

var _ Store = FileStore{}

// Load reads and decodes the token cache at path.
func (FileStore) Load(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	tok := &Token{Extra: raw}

	val, ok := raw["token"]
	if !ok {
		return nil, fmt.Errorf("%w: missing token field", ErrCorrupt)
	}
	if err := json.Unmarshal(val, &tok.Value); err != nil || tok.Value == "" {
		return nil, fmt.Errorf("%w: malformed token field", ErrCorrupt)
	}
	delete(raw, "token")

	if exp, ok := raw["exp"]; ok {
		if err := json.Unmarshal(exp, &tok.Expiry); err != nil {
			return nil, fmt.Errorf("%w: malformed exp field", ErrCorrupt)
		}
		delete(raw, "exp")
	}

	return tok, nil
}

// Save writes the token to path. The file is written to a temporary
// sibling and renamed into place so a crash mid-write never leaves a
// half-written cache for the next run.
func (FileStore) Save(path string, tok *Token) error {
	out := make(map[string]json.RawMessage, len(tok.Extra)+2)
	for k, v := range tok.Extra {
		out[k] = v
	}
	val, err := json.Marshal(tok.Value)
	if err != nil {
		return fmt.Errorf("auth: encode token: %w", err)
	}
	out["token"] = val
	exp, err := json.Marshal(tok.Expiry)
	if err != nil {
		return fmt.Errorf("auth: encode expiry: %w", err)
	}
	out["exp"] = exp

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("auth: encode token cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".token-*")
	if err != nil {
		return fmt.Errorf("auth: write token cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("auth: write token cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("auth: write token cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("auth: write token cache: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("auth: write token cache: %w", err)
	}
	return nil
}
