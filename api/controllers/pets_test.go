package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/pets"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

type stubPets struct {
	pets.Service
	size int
}

func (s *stubPets) QRCode(ctx context.Context, qrID string, size int) ([]byte, error) {
	if qrID != "qr-1" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
	}
	s.size = size
	return []byte("\x89PNG fake"), nil
}

func (s *stubPets) ResolveNFC(ctx context.Context, nfcID string) (string, error) {
	if nfcID != "nfc-1" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "tag not registered")
	}
	return "qr 1", nil
}

func TestPublicPetQRServesPNG(t *testing.T) {
	svc := &stubPets{}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/pets/public/qr-1/qr.png?size=256", nil), "qrId", "qr-1")
	rec := httptest.NewRecorder()
	PublicPetQR(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
	assert.Equal(t, 256, svc.size)
	assert.Equal(t, "\x89PNG fake", rec.Body.String())
}

func TestPublicPetQRDefaultsSize(t *testing.T) {
	svc := &stubPets{size: -1}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "qrId", "qr-1")
	rec := httptest.NewRecorder()
	PublicPetQR(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.size)
}

func TestPublicPetQRRejectsOversize(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/?size=9000", nil), "qrId", "qr-1")
	rec := httptest.NewRecorder()
	PublicPetQR(&stubPets{}, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicPetQRUnknownPet(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "qrId", "missing")
	rec := httptest.NewRecorder()
	PublicPetQR(&stubPets{}, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNFCRedirectEscapesQRID(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/n/nfc-1", nil), "nfcId", "nfc-1")
	rec := httptest.NewRecorder()
	NFCRedirect(&stubPets{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/p/qr%201", rec.Header().Get("Location"))
}

func TestNFCRedirectUnknownTag(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/n/other", nil), "nfcId", "other")
	rec := httptest.NewRecorder()
	NFCRedirect(&stubPets{}, testLogger()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
