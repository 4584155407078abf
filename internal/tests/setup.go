// Package tests holds end-to-end tests that drive the HTTP API against a real PostgreSQL
// database. They are skipped unless DATABASE_URL is set.
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// TruncateTables empties every application table for a clean test state.
func TruncateTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE events, poojas, temples, accounts RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// Envelope is the generic API response body
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// DecodeEnvelope reads resp's body as an envelope and, when dst is non-nil, decodes its data.
func DecodeEnvelope(resp *http.Response, dst any) (Envelope, error) {
	var env Envelope
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decode envelope %q: %w", string(body), err)
	}
	if dst != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			return env, fmt.Errorf("decode data: %w", err)
		}
	}
	return env, nil
}

// NewJSONRequest builds a request with a JSON body and an optional bearer token.
func NewJSONRequest(t testing.TB, method, url, token string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// FormFile is a file part of a multipart request
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// NewMultipartRequest builds a multipart/form-data request from fields and files.
func NewMultipartRequest(t testing.TB, method, url, token string, fields map[string]string, files ...FormFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Filename)
		require.NoError(t, err)
		_, err = part.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// MustJSON marshals v, panicking on failure. For building form fields in tests.
func MustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
