package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	tenderID := uuid.MustParse("8f9c1a52-1111-4c55-9a0e-1c0d2b1b7e01")
	docID := uuid.MustParse("0b7f4f2c-2222-4d1d-8d36-8d0c6b0f6a02")

	require.Equal(t,
		"tenders/8f9c1a52-1111-4c55-9a0e-1c0d2b1b7e01/0b7f4f2c-2222-4d1d-8d36-8d0c6b0f6a02.pdf",
		ObjectKey(tenderID, docID, "BOQ final.pdf"))
	require.Equal(t,
		"tenders/8f9c1a52-1111-4c55-9a0e-1c0d2b1b7e01/0b7f4f2c-2222-4d1d-8d36-8d0c6b0f6a02",
		ObjectKey(tenderID, docID, "noext"))
	require.False(t, strings.Contains(ObjectKey(tenderID, docID, "../../etc/passwd.txt"), ".."))
}

func TestPresignedURLIsOffline(t *testing.T) {
	s, err := NewMinioStore("localhost:9000", "access", "secret", "tender-documents", false)
	require.NoError(t, err)

	url, err := s.PresignedURL(context.Background(), "tenders/a/b.pdf")
	require.NoError(t, err)
	require.Contains(t, url, "http://localhost:9000/tender-documents/tenders/a/b.pdf")
	require.Contains(t, url, "X-Amz-Signature=")
}
