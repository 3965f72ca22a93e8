package repository

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/record"
)

// fileNamespace derives stable ids for file coupons declared without one.
var fileNamespace = uuid.MustParse("6f1c0c8e-3d4b-4f7a-9a62-52b1f0e2c7d4")

var _ coupon.Catalog = (*FileCatalog)(nil)

// FileCatalog is an immutable coupon catalog loaded from YAML.
type FileCatalog struct {
	coupons []*coupon.Coupon
	byID    map[uuid.UUID]*coupon.Coupon
}

// LoadCatalogFile reads and validates a YAML catalog file.
func LoadCatalogFile(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes a YAML list of coupon records. Coupons without an id
// get one derived from their code, so ids stay stable across reloads.
func ParseCatalog(data []byte) (*FileCatalog, error) {
	var records []record.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	f := &FileCatalog{
		coupons: make([]*coupon.Coupon, 0, len(records)),
		byID:    make(map[uuid.UUID]*coupon.Coupon, len(records)),
	}
	codes := make(map[string]struct{}, len(records))
	for i, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.NewSHA1(fileNamespace, []byte(rec.Code))
		}
		c, err := rec.Coupon()
		if err != nil {
			return nil, fmt.Errorf("coupon #%d (%q): %w", i, rec.Code, err)
		}
		if _, dup := codes[c.Code]; dup {
			return nil, fmt.Errorf("coupon #%d: %w: %q", i, coupon.ErrDuplicateCode, c.Code)
		}
		if _, dup := f.byID[c.ID]; dup {
			return nil, fmt.Errorf("coupon #%d: duplicate id %s", i, c.ID)
		}
		codes[c.Code] = struct{}{}
		f.byID[c.ID] = c
		f.coupons = append(f.coupons, c)
	}
	return f, nil
}

// All returns every coupon in file order, active or not.
func (f *FileCatalog) All() []*coupon.Coupon {
	return slices.Clone(f.coupons)
}

// Active returns the active coupons in file order.
func (f *FileCatalog) Active(context.Context) ([]*coupon.Coupon, error) {
	out := make([]*coupon.Coupon, 0, len(f.coupons))
	for _, c := range f.coupons {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get returns the coupon with the given id or coupon.ErrNotFound.
func (f *FileCatalog) Get(_ context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}
