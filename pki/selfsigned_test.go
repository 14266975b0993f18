// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pki_test

import (
	"crypto/x509"
	"encoding/pem"
	"time"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/pki"
)

type SelfSignedSuite struct{}

var _ = gc.Suite(&SelfSignedSuite{})

func (s *SelfSignedSuite) TestSelfSigned(c *gc.C) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	certPEM, keyPEM, err := pki.SelfSigned("10.5.0.10", []string{"dashboard.local"}, pki.ECDSAP256, now)
	c.Assert(err, jc.ErrorIsNil)

	block, _ := pem.Decode(certPEM)
	c.Assert(block, gc.NotNil)
	cert, err := x509.ParseCertificate(block.Bytes)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cert.Subject.CommonName, gc.Equals, "10.5.0.10")
	c.Check(cert.DNSNames, jc.DeepEquals, []string{"dashboard.local"})
	c.Assert(cert.IPAddresses, gc.HasLen, 1)
	c.Check(cert.IPAddresses[0].String(), gc.Equals, "10.5.0.10")
	c.Check(cert.NotAfter.After(now.Add(9*365*24*time.Hour)), jc.IsTrue)

	keyBlock, _ := pem.Decode(keyPEM)
	c.Assert(keyBlock, gc.NotNil)
	_, err = x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *SelfSignedSuite) TestSplitPEM(c *gc.C) {
	certPEM, keyPEM, err := pki.SelfSigned("dashboard", nil, nil, time.Now())
	c.Assert(err, jc.ErrorIsNil)

	gotCert, gotKey, err := pki.SplitPEM(append(append([]byte(nil), certPEM...), keyPEM...))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(gotCert), gc.Equals, string(certPEM))
	c.Check(string(gotKey), gc.Equals, string(keyPEM))

	_, _, err = pki.SplitPEM(certPEM)
	c.Check(err, jc.Satisfies, errors.IsNotValid)
}
