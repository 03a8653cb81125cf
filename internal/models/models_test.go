package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

func TestFileRefNormalize(t *testing.T) {
	assert.Equal(t, PendingFile("h1"), FileRef{Handle: " h1 "}.Normalize())
	assert.Equal(t, FileRefStored, FileRef{Key: "c/a.pdf", Name: "a.pdf"}.Normalize().Kind)
	assert.True(t, FileRef{Kind: FileRefPending}.Normalize().IsPending())
	assert.True(t, FileRef{Name: "orphan.pdf"}.Normalize().IsUnset())
}

func TestFileRefValue(t *testing.T) {
	v, err := FileRef{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = PendingFile("h").Value()
	require.ErrorIs(t, err, ErrPendingFileRef)

	v, err = StoredFile("c/a.pdf", "a.pdf", "application/pdf", 10).Value()
	require.NoError(t, err)

	var scanned FileRef
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, "c/a.pdf", scanned.Key)
	assert.True(t, scanned.IsStored())

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsUnset())
}

func TestFileRefsSkipUnsetAndRejectPending(t *testing.T) {
	refs := FileRefs{StoredFile("c/1.jpg", "1.jpg", "image/jpeg", 1), {}}
	v, err := refs.Value()
	require.NoError(t, err)

	var scanned FileRefs
	require.NoError(t, scanned.Scan(v))
	assert.Len(t, scanned, 1)
	assert.Equal(t, []string{"c/1.jpg"}, scanned.Keys())

	_, err = FileRefs{PendingFile("x")}.Value()
	require.ErrorIs(t, err, ErrPendingFileRef)
}

func TestDrillSetScanPadsMissingSlots(t *testing.T) {
	var drills DrillSet
	require.NoError(t, drills.Scan([]byte(`[{"date":"2025-01-10","pdf":{"kind":""}}]`)))
	require.NotNil(t, drills[0].Date)
	assert.Equal(t, "2025-01-10", drills[0].Date.String())
	assert.Nil(t, drills[3].Date)

	d := civil.MustParse("2025-02-01")
	drills[1] = Drill{Date: &d, PDF: PendingFile("h")}
	_, err := drills.Value()
	require.ErrorIs(t, err, ErrPendingFileRef)
}

func TestSelfProtectionSystemFiles(t *testing.T) {
	sys := SelfProtectionSystem{
		ProbatoryDispositionPDF: StoredFile("c/p.pdf", "p.pdf", "", 0),
	}
	sys.Drills[2].PDF = StoredFile("c/d.pdf", "d.pdf", "", 0)
	files := sys.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "c/d.pdf", files[1].Key)
}

func TestQRDocumentTypeParsing(t *testing.T) {
	typ, ok := ParseQRDocumentType("Elevators")
	assert.True(t, ok)
	assert.Equal(t, QRElevators, typ)

	typ, ok = ParseQRDocumentType("Detección")
	assert.True(t, ok)
	assert.Equal(t, QRDetectionSystem, typ)

	_, ok = ParseQRDocumentType("Water Tanks")
	assert.False(t, ok)
	assert.Equal(t, "Termotanques y Caldera", QRWaterHeaters.Label())
}

func TestCompanyServicesJSONAndLookup(t *testing.T) {
	var services CompanyServices
	require.NoError(t, json.Unmarshal([]byte(`{"Elevators":true,"DetectionSystem":true}`), &services))
	assert.True(t, services.Enabled(QRElevators))
	assert.False(t, services.Enabled(QRWaterHeaters))
	assert.Equal(t, []QRDocumentType{QRElevators, QRDetectionSystem}, services.EnabledTypes())
}

func TestFinalChecksItemsOrder(t *testing.T) {
	items := FinalChecks{Evacuacion: true}.Items()
	require.Len(t, items, 5)
	assert.Equal(t, "usoMatafuegos", items[0].Key)
	assert.True(t, items[4].Checked)
}
