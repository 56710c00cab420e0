package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"roadmapcore/internal/blob/core"
)

// NewMockForTests returns a *Store backed by an in-memory fake HTTP
// transport. Only the S3 operations the Store interface needs are handled.
func NewMockForTests() *Store {
	rt := &mockTransport{objects: make(map[string]mockObject)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: "mock-bucket", presign: s3.NewPresignClient(client)}
}

type mockObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

const metaHeaderPrefix = "X-Amz-Meta-"

// objectHeaders builds response headers through Set so keys land in
// canonical MIME form; literal map keys like "ETag" would never be found by
// the SDK's canonicalizing lookups.
func objectHeaders(obj mockObject) http.Header {
	h := http.Header{}
	h.Set("Content-Length", strconv.Itoa(len(obj.body)))
	h.Set("Content-Type", obj.contentType)
	h.Set("ETag", `"mock-etag"`)
	h.Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	for key, value := range obj.metadata {
		h.Set(metaHeaderPrefix+key, value)
	}
	return h
}

func metadataFromHeaders(h http.Header) map[string]string {
	var meta map[string]string
	for key, values := range h {
		if !strings.HasPrefix(key, metaHeaderPrefix) || len(values) == 0 {
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[strings.TrimPrefix(key, metaHeaderPrefix)] = values[0]
	}
	return meta
}

type mockTransport struct {
	objects map[string]mockObject
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		return m.listResponse(req.URL.Query().Get("prefix")), nil
	}

	switch req.Method {
	case http.MethodHead:
		obj, ok := m.objects[key]
		if !ok {
			return response(http.StatusNotFound, nil, nil), nil
		}
		return response(http.StatusOK, nil, objectHeaders(obj)), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if decoded, ok := decodeAWSChunked(body); ok {
			body = decoded
		}
		if _, exists := m.objects[key]; !exists {
			m.objects[key] = mockObject{
				body:        body,
				contentType: req.Header.Get("Content-Type"),
				metadata:    metadataFromHeaders(req.Header),
			}
		}
		putHeader := http.Header{}
		putHeader.Set("ETag", `"mock-etag"`)
		return response(http.StatusOK, nil, putHeader), nil
	case http.MethodGet:
		obj, ok := m.objects[key]
		if !ok {
			return response(http.StatusNotFound, nil, nil), nil
		}
		return response(http.StatusOK, obj.body, objectHeaders(obj)), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return response(http.StatusNoContent, nil, nil), nil
	}
	return response(http.StatusNotImplemented, nil, nil), nil
}

func (m *mockTransport) listResponse(prefix string) *http.Response {
	var keys []string
	for key := range m.objects {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, key := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>",
			key, len(m.objects[key].body))
	}
	b.WriteString("</ListBucketResult>")
	return response(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func response(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

// decodeAWSChunked unwraps a minimal single-chunk aws-chunked payload:
// <hex-size>\r\n<body>\r\n0\r\n...
func decodeAWSChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

// Compile-time contract assertion.
var _ core.Store = (*Store)(nil)
