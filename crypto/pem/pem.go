/*
Copyright 2022 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package pem provides PEM encode/decode helpers for X.509 certificates
// and private keys, used by svid/x509svid when a caller needs a
// PEM-encoded form instead of the raw DER bytes the Workload API
// returns.
package pem

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const (
	certificateBlockType = "CERTIFICATE"
	ecPrivateKeyType     = "EC PRIVATE KEY"
	pkcs8PrivateKeyType  = "PRIVATE KEY"
)

// DecodePEMCertificates decodes a PEM block containing one or more
// certificates, ignoring any non-certificate blocks interleaved with
// them.
func DecodePEMCertificates(pemBytes []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != certificateBlockType {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("pem: invalid certificate block: %w", err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, fmt.Errorf("pem: no certificate blocks found")
	}
	return certs, nil
}

// DecodePEMCertificatesChain is an alias of DecodePEMCertificates kept
// for call sites that read a chain specifically (leaf followed by
// intermediates/roots, in the order they appear in the PEM document).
func DecodePEMCertificatesChain(pemBytes []byte) ([]*x509.Certificate, error) {
	return DecodePEMCertificates(pemBytes)
}

// EncodeX509Chain encodes a certificate chain as concatenated PEM
// CERTIFICATE blocks, in the order given.
func EncodeX509Chain(certs []*x509.Certificate) ([]byte, error) {
	var out []byte
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		block := &pem.Block{Type: certificateBlockType, Bytes: cert.Raw}
		out = append(out, pem.EncodeToMemory(block)...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pem: no certificates to encode")
	}
	return out, nil
}

// DecodePEMPrivateKey decodes a single PEM-encoded private key, trying
// PKCS#8 first and falling back to SEC1/EC for keys produced that way.
func DecodePEMPrivateKey(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("pem: no private key block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("pem: decoded key of type %T is not a crypto.Signer", key)
		}
		return signer, nil
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	return nil, fmt.Errorf("pem: unsupported private key encoding")
}

// EncodePrivateKey encodes a private key as a PEM block, using PKCS#8
// for all key types except EC keys, which are encoded as SEC1 to match
// the form most SPIFFE tooling emits.
func EncodePrivateKey(key crypto.Signer) ([]byte, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("pem: marshal EC private key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: ecPrivateKeyType, Bytes: der}), nil
	case *rsa.PrivateKey, ed25519.PrivateKey:
		der, err := x509.MarshalPKCS8PrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("pem: marshal private key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: pkcs8PrivateKeyType, Bytes: der}), nil
	default:
		der, err := x509.MarshalPKCS8PrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("pem: marshal private key of type %T: %w", key, err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: pkcs8PrivateKeyType, Bytes: der}), nil
	}
}
