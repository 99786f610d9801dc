// Package importer loads catalog CSV exports. It is the data boundary where
// both spellings of the fulfillment flags are accepted and folded into the
// canonical product fields.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"localcart/internal/domain"
	"localcart/internal/fulfillment"

	"github.com/google/uuid"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// attributePrefix marks product attribute columns, e.g.
// attributes.isLocalDeliveryAvailable or attributes.is_shipping_available.
const attributePrefix = "attributes."

// CSVImporter reads product CSV exports and inserts/updates products.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      *log.Logger
}

// Result summarizes one import run.
type Result struct {
	Imported int
	// Warnings lists product keys that were imported but cannot be fulfilled.
	Warnings []string
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger *log.Logger) *CSVImporter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logger,
	}
}

type csvRow struct {
	ID         string
	Key        string
	Name       string
	Desc       string
	SKU        string
	Cents      int64
	Currency   string
	ImageURLs  []string
	Attributes map[string]interface{}
}

// Run parses CSV rows and upserts products grouped by product key.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var current *csvRow
	flush := func() error {
		if current == nil {
			return nil
		}
		warn, err := i.save(ctx, current)
		if err != nil {
			return err
		}
		res.Imported++
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
		return nil
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}

		if row.Key != "" {
			if err := flush(); err != nil {
				return res, err
			}
			current = row
			continue
		}

		// Continuation rows (images) belong to the current product.
		if current != nil && len(row.ImageURLs) > 0 {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}

	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

// save upserts one product. A product with neither fulfillment flag is still
// imported; the returned warning names it.
func (i *CSVImporter) save(ctx context.Context, row *csvRow) (string, error) {
	if row.Key == "" || row.Name == "" || row.SKU == "" || row.Cents == 0 || row.Currency == "" {
		return "", fmt.Errorf("invalid product row (missing required fields) for key %q", row.Key)
	}
	if row.ID != "" {
		if _, err := uuid.Parse(row.ID); err != nil {
			return "", fmt.Errorf("invalid id for key %q: %s", row.Key, row.ID)
		}
	}

	attrs := row.Attributes
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	if len(row.ImageURLs) > 0 {
		attrs["images"] = row.ImageURLs
	}

	p := domain.Product{
		ID:          row.ID,
		Key:         row.Key,
		SKU:         row.SKU,
		Name:        row.Name,
		Description: row.Desc,
		PriceCents:  row.Cents,
		Currency:    row.Currency,
		Attributes:  attrs,
	}
	p.Attributes = fulfillment.ApplyAttributeFlags(&p)

	var warning string
	if err := fulfillment.Validate(p); err != nil {
		warning = row.Key
		i.logger.Printf("importer: warning key=%s mode=%s error=%v", row.Key, fulfillment.Resolve(p), err)
	}

	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return "", fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	return warning, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	key := pick(record, index, "key")
	imageURL := pick(record, index, "variants.images.url")
	if key == "" && imageURL == "" {
		return nil
	}

	var cents int64
	if centStr := pick(record, index, "variants.prices.value.centAmount"); centStr != "" {
		cents, _ = strconv.ParseInt(centStr, 10, 64)
	}

	row := &csvRow{
		ID:       pick(record, index, "id"),
		Key:      key,
		Name:     pick(record, index, "name.en"),
		Desc:     pick(record, index, "description.en"),
		SKU:      pick(record, index, "variants.sku"),
		Cents:    cents,
		Currency: pick(record, index, "variants.prices.value.currencyCode"),
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
	}
	if key != "" {
		row.Attributes = attributeColumns(record, index)
	}
	return row
}

// attributeColumns collects attributes.* cells, keyed without the prefix.
// Empty cells are skipped so a missing flag stays missing.
func attributeColumns(record []string, index map[string]int) map[string]interface{} {
	out := map[string]interface{}{}
	for header, pos := range index {
		if !strings.HasPrefix(header, attributePrefix) || pos >= len(record) {
			continue
		}
		v := strings.TrimSpace(record[pos])
		if v == "" {
			continue
		}
		out[strings.TrimPrefix(header, attributePrefix)] = v
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
