package comm

import (
	"crypto/tls"
	"crypto/x509/pkix"
	"fmt"
	"net"
	"strconv"
)

// wrapClientTLS completes a TLS client handshake over an already-dialed
// connection, used by the dialing side of both Direct and Rendezvous
// bootstrap when cfg.TLS is set (spec.md §4.7).
func wrapClientTLS(conn net.Conn, cfg *tls.Config) (net.Conn, error) {
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("comm: TLS handshake failed: %w", err)
	}
	return tlsConn, nil
}

// verifyTLSRank checks, for a TLS-wrapped connection, that the peer's
// certificate subject commits to the rank it claimed during the rank
// handshake. Non-TLS connections are accepted unconditionally: TLS is an
// optional layer (spec.md §4.7), so rank verification only applies when a
// certificate is actually present to check.
func verifyTLSRank(conn net.Conn, claimedRank int) error {
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil
	}
	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	subject := state.PeerCertificates[0].Subject
	if !subjectClaimsRank(subject, claimedRank) {
		return fmt.Errorf("comm: certificate subject %q does not commit to claimed rank %d", subject.CommonName, claimedRank)
	}
	return nil
}

// subjectClaimsRank reports whether a certificate subject's CommonName
// encodes the given rank, following the "rank-<n>" naming convention
// Cicada's deployment tooling assigns to per-player identities.
func subjectClaimsRank(subject pkix.Name, rank int) bool {
	want := "rank-" + strconv.Itoa(rank)
	return subject.CommonName == want
}
