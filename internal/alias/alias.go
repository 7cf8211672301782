// Package alias maps the column names found in different vintages of the
// census sector files onto the canonical names the pipeline works with.
package alias

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hilaliskandar/sensocenso/internal/table"
)

// Canonical lists the canonical fields in resolution order.
var Canonical = []string{
	"CD_SETOR", "CD_MUN", "NM_MUN", "CD_UF", "NM_UF",
	"CD_SITUACAO", "SITUACAO_DET_TXT", "CD_TIPO", "TP_SETOR_TXT", "SITUACAO",
}

// Synonyms holds, per canonical field, the historical names it appears under.
// The canonical name comes first so an already canonical table is left alone.
var Synonyms = map[string][]string{
	"CD_SETOR":         {"CD_SETOR", "GEOCODIGO_DE_SETOR_CENSITARIO", "GEOCODIGO_SETOR_CENSITARIO"},
	"CD_MUN":           {"CD_MUN", "CODIGO_DO_MUNICIPIO", "COD_MUN"},
	"NM_MUN":           {"NM_MUN", "NOME_DO_MUNICIPIO", "NOME_MUNICIPIO"},
	"CD_UF":            {"CD_UF", "CODIGO_DA_UNIDADE_DA_FEDERACAO", "UF_CODIGO"},
	"NM_UF":            {"NM_UF", "NOME_DA_UNIDADE_DA_FEDERACAO"},
	"CD_SITUACAO":      {"CD_SITUACAO", "SITUACAO_DETALHADA_DO_SETOR_CENSITARIO_CODIGO", "COD_SITUACAO_DETALHADA"},
	"SITUACAO_DET_TXT": {"SITUACAO_DET_TXT", "SITUACAO_DETALHADA_DO_SETOR_CENSITARIO"},
	"CD_TIPO":          {"CD_TIPO", "TIPO_DO_SETOR_CENSITARIO_CODIGO", "COD_TIPO_SETOR"},
	"TP_SETOR_TXT":     {"TP_SETOR_TXT", "TIPO_DO_SETOR_CENSITARIO"},
	"SITUACAO":         {"SITUACAO", "SITUACAO_DO_SETOR_CENSITARIO", "SIT_SETOR"},
}

// Resolver renames columns to canonical names. The zero value resolves with
// the static synonym table only.
type Resolver struct {
	Overrides *OverrideCache
	Log       *zap.Logger
}

func NewResolver(overrides *OverrideCache, log *zap.Logger) *Resolver {
	return &Resolver{Overrides: overrides, Log: log}
}

func (r *Resolver) logger() *zap.Logger {
	if r == nil || r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Resolve returns a copy of t with canonical column names.
func (r *Resolver) Resolve(t *table.Table) *table.Table {
	mapping := r.Mapping(t.Headers)
	if len(mapping) > 0 {
		r.logger().Debug("resolved column aliases", zap.Int("renamed", len(mapping)), zap.Any("mapping", mapping))
	}
	return t.Rename(mapping)
}

// Mapping computes the renames Resolve would apply to headers. Identity
// renames are omitted.
func (r *Resolver) Mapping(headers []string) map[string]string {
	mapping := map[string]string{}
	claimed := map[string]bool{}

	var overrides map[string]string
	if r != nil && r.Overrides != nil {
		overrides = r.Overrides.Get()
	}
	if len(overrides) > 0 {
		normOverrides := make(map[string]string, len(overrides))
		for k, v := range overrides {
			normOverrides[Normalize(k)] = v
		}
		for _, h := range headers {
			to, ok := overrides[h]
			if !ok {
				to, ok = normOverrides[Normalize(h)]
			}
			if !ok || to == "" {
				continue
			}
			claimed[h] = true
			if to != h {
				mapping[h] = to
			}
		}
	}

	byNorm := make(map[string]string, len(headers))
	for _, h := range headers {
		n := Normalize(h)
		if _, dup := byNorm[n]; !dup {
			byNorm[n] = h
		}
	}
	for _, canon := range Canonical {
		if already(mapping, canon) {
			continue
		}
		for _, variant := range Synonyms[canon] {
			src, ok := byNorm[Normalize(variant)]
			if !ok || claimed[src] {
				continue
			}
			claimed[src] = true
			if src != canon {
				mapping[src] = canon
			}
			break
		}
	}

	for _, h := range headers {
		if claimed[h] {
			continue
		}
		if reVariable.MatchString(h) {
			if up := strings.ToUpper(h); up != h {
				mapping[h] = up
			}
		}
	}
	return mapping
}

// ResolveName reports the canonical name for a single column. The boolean is
// false when the column is not a known field.
func (r *Resolver) ResolveName(col string) (string, bool) {
	if to, ok := r.Mapping([]string{col})[col]; ok {
		return to, true
	}
	if _, ok := Synonyms[col]; ok || reVariable.MatchString(col) {
		return col, true
	}
	return col, false
}

func already(mapping map[string]string, canon string) bool {
	for _, to := range mapping {
		if to == canon {
			return true
		}
	}
	return false
}

// Legacy renames canonical columns back to their first historical synonym,
// producing tables in the older file layout. Resolve undoes it.
func Legacy(t *table.Table) *table.Table {
	mapping := map[string]string{}
	for _, canon := range Canonical {
		if vs := Synonyms[canon]; len(vs) > 1 && t.Has(canon) {
			mapping[canon] = vs[1]
		}
	}
	return t.Rename(mapping)
}
