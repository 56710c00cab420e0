package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"roadmapcore/pkg/domain"
)

// PublishDocument serializes a roadmap document and stores it under key as an
// immutable JSON artifact. Entity counts ride along as user metadata so
// operators can inspect a listing without downloading each document.
func PublishDocument(ctx context.Context, store Store, key string, doc domain.Document) (Info, error) {
	if key == "" {
		return Info{}, fmt.Errorf("publish key required")
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("encode document: %w", err)
	}

	counts := map[domain.EntityType]int{}
	for _, rec := range doc.Entities {
		counts[rec.EntityType]++
	}
	info, err := store.Put(ctx, key, bytes.NewReader(encoded), PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"schema_version":      doc.Metadata.Version,
			"created_by":          doc.Metadata.CreatedBy,
			"created_date":        doc.Metadata.CreatedDate,
			"product_features":    strconv.Itoa(counts[domain.EntityProductFeature]),
			"capabilities":        strconv.Itoa(counts[domain.EntityCapability]),
			"technical_functions": strconv.Itoa(counts[domain.EntityTechnicalFunction]),
		},
	})
	if err != nil {
		return Info{}, fmt.Errorf("store document: %w", err)
	}
	return info, nil
}

// FetchDocument retrieves and decodes a published roadmap document.
func FetchDocument(ctx context.Context, store Store, key string) (domain.Document, error) {
	_, body, err := store.Get(ctx, key)
	if err != nil {
		return domain.Document{}, fmt.Errorf("fetch document: %w", err)
	}
	defer func() { _ = body.Close() }()
	var doc domain.Document
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
