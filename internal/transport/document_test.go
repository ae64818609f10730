package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pretyflaco/voucherprint/internal/escpos"
)

func sampleReceipt() []byte {
	e := escpos.NewEncoder(escpos.Profile80)
	e.CenterLine("VOUCHER", true, 2)
	e.LabelValue("Value:", "5,000 sats", 12, true)
	e.QRCodeAuto("LNURL1TESTPAYLOAD")
	e.Cut()
	return e.Build()
}

func TestDocumentPrintWritesSpoolFile(t *testing.T) {
	dir := t.TempDir()
	a := NewDocumentAdapter(DocumentConfig{SpoolDir: dir}, nil)

	err := a.Print(context.Background(), sampleReceipt(), PrintContext{})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "VOUCHER\n")
	assert.Contains(t, text, "5,000 sats")
	assert.Contains(t, text, "[QR]\n")
}

func TestDocumentPrintSurvivesFailingSpoolerCommand(t *testing.T) {
	dir := t.TempDir()
	a := NewDocumentAdapter(DocumentConfig{
		SpoolDir: dir,
		Command:  []string{"/nonexistent/lp-command"},
	}, nil)

	err := a.Print(context.Background(), sampleReceipt(), PrintContext{})
	require.NoError(t, err, "fallback keeps the spool file when the spooler is gone")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDocumentAlwaysAvailable(t *testing.T) {
	a := NewDocumentAdapter(DocumentConfig{SpoolDir: t.TempDir()}, nil)
	assert.True(t, a.Available(context.Background()))
}

func TestDocumentCapabilities(t *testing.T) {
	a := NewDocumentAdapter(DocumentConfig{}, nil)
	caps := a.Capabilities()
	assert.False(t, caps.Cut)
	assert.False(t, caps.Drawer)
}
