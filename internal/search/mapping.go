package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/ar"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field layout of an ayah document:
//
//	text     normalized words, Arabic analyzer (stop words, light stemming)
//	words    the same words, simple analyzer, for exact sequence boosts
//	display  original text, stored only
//	id       keyword
//	surah    numeric, stored
//	ayah     numeric, stored
func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	doc.AddFieldMappingsAt("text", analyzedField(ar.AnalyzerName))
	doc.AddFieldMappingsAt("words", analyzedField(simple.Name))

	display := bleve.NewTextFieldMapping()
	display.Index = false
	doc.AddFieldMappingsAt("display", display)

	id := bleve.NewTextFieldMapping()
	id.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("id", id)

	doc.AddFieldMappingsAt("surah", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("ayah", bleve.NewNumericFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = ar.AnalyzerName
	m.AddDocumentMapping("_default", doc)
	return m
}

// analyzedField is searched but not stored; term vectors back phrase queries.
func analyzedField(analyzer string) *mapping.FieldMapping {
	f := bleve.NewTextFieldMapping()
	f.Analyzer = analyzer
	f.Store = false
	f.IncludeTermVectors = true
	return f
}
