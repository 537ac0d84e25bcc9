package certs

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCertificateGenerates(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	cert, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Contains(t, leaf.DNSNames, "localhost")

	_, err = os.Stat(filepath.Join(dir, "kore.crt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "kore.key"))
	assert.NoError(t, err)
}

func TestGetOrCreateCertificateReuses(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	first, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	second, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	assert.Equal(t, first.Certificate[0], second.Certificate[0])
}

func TestKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	_, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "kore.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
