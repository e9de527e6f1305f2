// Package tlsconf builds the optional SPIFFE mTLS listener configuration.
package tlsconf

import (
	"crypto/tls"
	"fmt"

	"github.com/spiffe/go-spiffe/v2/bundle/x509bundle"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/svid/x509svid"
)

// Basic serves one SVID loaded at startup.
type Basic struct {
	SVID *x509svid.SVID
}

func (s *Basic) GetX509SVID() (*x509svid.SVID, error) {
	return s.SVID, nil
}

// ServerConfig accepts only clients from trustDomain.
func ServerConfig(certFile, keyFile, bundleFile, trustDomain string) (*tls.Config, error) {
	svid, err := x509svid.Load(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load svid: %w", err)
	}
	td, err := spiffeid.TrustDomainFromString(trustDomain)
	if err != nil {
		return nil, fmt.Errorf("trust domain: %w", err)
	}
	b, err := x509bundle.Load(td, bundleFile)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	return tlsconfig.MTLSServerConfig(&Basic{SVID: svid}, b, tlsconfig.AuthorizeMemberOf(td)), nil
}
