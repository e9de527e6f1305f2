package tlsconf

import (
	"path/filepath"
	"testing"
)

func TestServerConfigErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ServerConfig(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"), filepath.Join(dir, "ca.pem"), "example.com"); err == nil {
		t.Fatal("missing svid files accepted")
	}
}

func TestBasicSource(t *testing.T) {
	s := &Basic{}
	svid, err := s.GetX509SVID()
	if err != nil || svid != nil {
		t.Fatalf("GetX509SVID = %v, %v", svid, err)
	}
}
