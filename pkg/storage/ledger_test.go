package storage

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adithyagurusai/media-extractor/pkg/models"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestLedger(t *testing.T) *BadgerLedger {
	t.Helper()
	ledger, err := NewBadgerLedger(t.TempDir(), false, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestLedger_LookupUnknownReturnsNil(t *testing.T) {
	ledger := newTestLedger(t)

	entry, err := ledger.Lookup("cards/Red_Dragon", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestLedger_RecordAndLookup(t *testing.T) {
	ledger := newTestLedger(t)

	in := &models.ArtifactEntry{
		Status:      models.ArtifactStatusSuccess,
		LocalPath:   "cards/Red_Dragon/img_001.jpg",
		FileSize:    12345,
		LastAttempt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, ledger.Record("cards/Red_Dragon", "https://cdn.example.com/a.jpg", in))

	out, err := ledger.Lookup("cards/Red_Dragon", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, models.ArtifactStatusSuccess, out.Status)
	assert.Equal(t, in.LocalPath, out.LocalPath)
	assert.Equal(t, in.FileSize, out.FileSize)
}

func TestLedger_ScopesAreIndependent(t *testing.T) {
	ledger := newTestLedger(t)
	url := "https://cdn.example.com/shared.jpg"

	require.NoError(t, ledger.Record("cards/Parent", url, &models.ArtifactEntry{Status: models.ArtifactStatusSuccess}))

	other, err := ledger.Lookup("cards/Parent/Popup", url)
	require.NoError(t, err)
	assert.Nil(t, other, "same URL in a different scope is a different artifact")
}

func TestLedger_RecordOverwritesFailure(t *testing.T) {
	ledger := newTestLedger(t)
	url := "https://cdn.example.com/flaky.jpg"

	require.NoError(t, ledger.Record("cards/P", url, &models.ArtifactEntry{
		Status:    models.ArtifactStatusFailure,
		ErrorType: "RetryFailed_HTTPServer",
	}))
	require.NoError(t, ledger.Record("cards/P", url, &models.ArtifactEntry{
		Status:   models.ArtifactStatusSuccess,
		FileSize: 10,
	}))

	out, err := ledger.Lookup("cards/P", url)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, models.ArtifactStatusSuccess, out.Status)
	assert.Empty(t, out.ErrorType)
}

func TestLedger_FreshWipesState(t *testing.T) {
	dir := t.TempDir()
	logger := testLogger()

	ledger1, err := NewBadgerLedger(dir, false, logger)
	require.NoError(t, err)
	require.NoError(t, ledger1.Record("cards/P", "https://cdn.example.com/a.jpg",
		&models.ArtifactEntry{Status: models.ArtifactStatusSuccess}))
	require.NoError(t, ledger1.Close())

	// Reopen resuming: record survives
	ledger2, err := NewBadgerLedger(dir, false, logger)
	require.NoError(t, err)
	entry, err := ledger2.Lookup("cards/P", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	assert.NotNil(t, entry)
	require.NoError(t, ledger2.Close())

	// Reopen fresh: record wiped
	ledger3, err := NewBadgerLedger(dir, true, logger)
	require.NoError(t, err)
	t.Cleanup(func() { ledger3.Close() })
	entry, err = ledger3.Lookup("cards/P", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
