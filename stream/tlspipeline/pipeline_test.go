package tlspipeline

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

// bridge pumps ciphertext between two StdPrimitives, simulating the kernel
// socket TlsPipeline would otherwise drive.
func bridge(t *testing.T, a, b *StdPrimitive, stop <-chan struct{}) {
	t.Helper()
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			if out, _ := a.PopCiphertextOut(); len(out) > 0 {
				b.PushCiphertextIn(out)
			}
			if out, _ := b.PopCiphertextOut(); len(out) > 0 {
				a.PushCiphertextIn(out)
			}
		}
	}
}

func TestHandshakeCompletesAndExchangesData(t *testing.T) {
	cert := selfSignedCert(t)
	serverCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	clientCfg := &tls.Config{InsecureSkipVerify: true}

	server := NewServer(serverCfg)
	client := NewClient(clientCfg)

	stop := make(chan struct{})
	defer close(stop)
	go bridge(t, server, client, stop)

	deadline := time.After(2 * time.Second)
	for !(server.IsHandshakeComplete() && client.IsHandshakeComplete()) {
		select {
		case <-deadline:
			t.Fatal("handshake did not complete")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := client.PushPlaintextDown([]byte("hello")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	deadline = time.After(2 * time.Second)
	for {
		out, err := server.PopPlaintextOut()
		if err != nil {
			t.Fatalf("server read: %v", err)
		}
		if string(out) == "hello" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("server never received plaintext")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTlsPipelineRejectsSendBeforeEstablished(t *testing.T) {
	cert := selfSignedCert(t)
	server := NewServer(&tls.Config{Certificates: []tls.Certificate{cert}})
	p := New(server)
	if err := p.SendPlaintext([]byte("x")); err == nil {
		t.Fatal("expected error sending before handshake establishes")
	}
}
