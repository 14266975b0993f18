// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pki generates the self-signed certificate the dashboard falls
// back to when no other certificate is available.
package pki

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"time"

	"github.com/juju/errors"
)

// SelfSignedValidity is how long a generated certificate is valid for.
const SelfSignedValidity = 10 * 365 * 24 * time.Hour

// SelfSigned returns a PEM encoded certificate and PKCS8 private key for
// commonName, valid from now. Every entry in hosts becomes a subject
// alternative name.
func SelfSigned(commonName string, hosts []string, profile KeyProfile, now time.Time) (certPEM, keyPEM []byte, err error) {
	if profile == nil {
		profile = DefaultKeyProfile
	}
	signer, err := profile()
	if err != nil {
		return nil, nil, errors.Annotate(err, "generating key")
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, errors.Annotate(err, "generating serial number")
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-5 * time.Minute).UTC(),
		NotAfter:              now.Add(SelfSignedValidity).UTC(),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range append([]string{commonName}, hosts...) {
		if h == "" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, signer.Public(), signer)
	if err != nil {
		return nil, nil, errors.Annotate(err, "creating certificate")
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(signer)
	if err != nil {
		return nil, nil, errors.Annotate(err, "marshalling key")
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

// SplitPEM separates a bundle holding one certificate and one private
// key, as produced by concatenating the results of SelfSigned.
func SplitPEM(bundle []byte) (certPEM, keyPEM []byte, err error) {
	rest := bundle
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			certPEM = pem.EncodeToMemory(block)
		case "PRIVATE KEY", "EC PRIVATE KEY", "RSA PRIVATE KEY":
			keyPEM = pem.EncodeToMemory(block)
		}
	}
	if certPEM == nil || keyPEM == nil {
		return nil, nil, errors.NotValidf("certificate bundle")
	}
	return certPEM, keyPEM, nil
}
