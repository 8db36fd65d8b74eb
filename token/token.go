// Package token stores the personal access token in
// the operating system keyring, keyed by GitLab
// instance URL.
package token

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "glmirror"

// Store saves the token for the given instance URL.
func Store(url, tok string) error {
	const errCtx = "storing token"

	if err := keyring.Set(service, url, tok); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Lookup returns the stored token for the given
// instance URL, or an empty string when none is
// stored.
func Lookup(url string) (string, error) {
	const errCtx = "looking up token"

	tok, err := keyring.Get(service, url)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}

		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return tok, nil
}

// Delete removes the stored token for the given
// instance URL. Deleting a missing token is not an
// error.
func Delete(url string) error {
	const errCtx = "deleting token"

	err := keyring.Delete(service, url)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
