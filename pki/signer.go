// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
)

// KeyProfile is a convenience way of getting a crypto private key with a
// default set of attributes.
type KeyProfile func() (crypto.Signer, error)

var (
	DefaultKeyProfile KeyProfile = ECDSAP256
)

// ECDSAP256 returns a ECDSA 256 private key
func ECDSAP256() (crypto.Signer, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// RSA2048 returns a RSA 2048 private key
func RSA2048() (crypto.Signer, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}
