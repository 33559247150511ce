// Package gateway exposes the field catalog and the single
// fetch-rows-for-api operation over the upstream client.
package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/luqian/astock-screener/pkg/config"
	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

// Querier is the upstream call the gateway delegates to.
type Querier interface {
	Query(ctx context.Context, apiName string, params map[string]string, fields []string) (*table.Table, error)
}

// UnknownAPIError reports a dataset name absent from the catalog.
type UnknownAPIError struct {
	API string
}

func (e *UnknownAPIError) Error() string {
	return fmt.Sprintf("no API configuration for %q", e.API)
}

// FieldRef locates a field inside the catalog.
type FieldRef struct {
	API   string // catalog dataset name
	Field string // wire field name
	Zh    string // display name
}

// Gateway owns the catalog and the upstream client.
type Gateway struct {
	client   Querier
	apis     map[string]config.API
	apiNames []string // sorted, for deterministic catalog scans
	logger   *logger.Logger
}

// New creates a Gateway from the configured catalog.
func New(cfg *config.Config, client Querier, log *logger.Logger) *Gateway {
	names := make([]string, 0, len(cfg.APIs))
	for name := range cfg.APIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Gateway{
		client:   client,
		apis:     cfg.APIs,
		apiNames: names,
		logger:   log,
	}
}

// Fetch performs one upstream call for the named dataset. The catalog
// supplies the wire api name and the field list; params pass through.
func (g *Gateway) Fetch(ctx context.Context, apiName string, params map[string]string) (*table.Table, error) {
	api, ok := g.apis[apiName]
	if !ok {
		return nil, &UnknownAPIError{API: apiName}
	}
	return g.client.Query(ctx, api.TushareAPI, params, api.FieldNames())
}

// DateField returns the parameter name that scopes the dataset by date.
func (g *Gateway) DateField(apiName string) (string, error) {
	api, ok := g.apis[apiName]
	if !ok {
		return "", &UnknownAPIError{API: apiName}
	}
	return api.DateField, nil
}

// FindField returns the first catalog entry whose display name matches
// exactly. Datasets are scanned in sorted name order.
func (g *Gateway) FindField(zhName string) (FieldRef, bool) {
	for _, apiName := range g.apiNames {
		for _, f := range g.apis[apiName].Fields {
			if f.Zh == zhName {
				return FieldRef{API: apiName, Field: f.Name, Zh: f.Zh}, true
			}
		}
	}
	return FieldRef{}, false
}

// FindAllFields returns every catalog entry whose display name matches
// exactly.
func (g *Gateway) FindAllFields(zhName string) []FieldRef {
	var refs []FieldRef
	for _, apiName := range g.apiNames {
		for _, f := range g.apis[apiName].Fields {
			if f.Zh == zhName {
				refs = append(refs, FieldRef{API: apiName, Field: f.Name, Zh: f.Zh})
			}
		}
	}
	return refs
}

// FuzzyFindFields returns every catalog entry whose display name contains
// the query as a substring.
func (g *Gateway) FuzzyFindFields(zhName string) []FieldRef {
	var refs []FieldRef
	for _, apiName := range g.apiNames {
		for _, f := range g.apis[apiName].Fields {
			if strings.Contains(f.Zh, zhName) {
				refs = append(refs, FieldRef{API: apiName, Field: f.Name, Zh: f.Zh})
			}
		}
	}
	return refs
}
