package object

import (
	"path"
	"strings"

	"github.com/robert-malhotra/go-pds3/internal/label"
)

var exactNames = map[string]Category{
	"TABLE":           CategoryTable,
	"SERIES":          CategorySeries,
	"SPREADSHEET":     CategoryTable,
	"SPECTRUM":        CategorySeries,
	"HISTOGRAM":       CategoryTable,
	"CONTAINER":       CategoryTable,
	"IMAGE":           CategoryImage,
	"HISTOGRAM_IMAGE": CategoryImage,
	"QUBE":            CategoryQube,
	"SPECTRAL_QUBE":   CategoryQube,
	"ARRAY":           CategoryArray,
	"HEADER":          CategoryHeader,
	"TEXT":            CategoryText,
	"LABEL":           CategoryLabel,
}

var tableWords = []string{"TABLE", "SPREADSHEET", "SERIES", "SPECTRUM", "HISTOGRAM", "CONTAINER"}

var fileExtensions = map[string]Category{
	".fits": CategoryFITS,
	".fit":  CategoryFITS,
	".fts":  CategoryFITS,
	".txt":  CategoryText,
	".asc":  CategoryText,
	".cat":  CategoryText,
	".lbl":  CategoryLabel,
	".csv":  CategoryTable,
	".tab":  CategoryTable,
	".img":  CategoryImage,
	".qub":  CategoryQube,
	".pdf":  CategoryOpaque,
}

// Classify picks the category of an object from its name, its label block
// and the file its pointer targets. block and file may be empty.
func Classify(name string, block *label.Node, file string) (Category, Inference) {
	base := BaseName(name)
	if c, ok := exactNames[base]; ok {
		return c, InferExact
	}
	if c, ok := byName(base, file); ok {
		return c, InferName
	}
	if block != nil {
		if c, ok := byStructure(block); ok {
			return c, InferStructure
		}
		if fn, ok := block.Text("FILE_NAME"); ok {
			if c, ok := fileExtensions[strings.ToLower(path.Ext(fn))]; ok {
				return c, InferName
			}
		}
	}
	return CategoryOpaque, InferFallback
}

func byName(base, file string) (Category, bool) {
	ext := strings.ToLower(path.Ext(file))
	switch {
	case strings.Contains(base, "LABEL"):
		return CategoryLabel, true
	case strings.Contains(base, "FITS") || fileExtensions[ext] == CategoryFITS:
		return CategoryFITS, true
	case ext == ".pdf" || hasSegment(base, "PDF"):
		return CategoryOpaque, true
	case isTextName(base):
		return CategoryText, true
	case strings.Contains(base, "ARRAY"):
		return CategoryArray, true
	case isTableName(base):
		if strings.Contains(base, "SERIES") || strings.Contains(base, "SPECTRUM") {
			return CategorySeries, true
		}
		return CategoryTable, true
	case strings.Contains(base, "HEADER"):
		return CategoryHeader, true
	case strings.Contains(base, "IMAGE"):
		return CategoryImage, true
	case strings.Contains(base, "QUB"):
		return CategoryQube, true
	}
	return CategoryOpaque, false
}

// isTableName matches table words except in header names and histogram
// images, which are never tabular.
func isTableName(base string) bool {
	if strings.HasSuffix(base, "_HEADER") || strings.Contains(base, "HISTOGRAM_IMAGE") {
		return false
	}
	return containsAny(base, tableWords)
}

// isTextName matches TEXT and DESC as whole name segments, so that
// CONTEXT_IMAGE stays an image.
func isTextName(base string) bool {
	if strings.Contains(base, "MAP_PROJECTION_CATALOG") {
		return true
	}
	for _, seg := range strings.Split(base, "_") {
		if seg == "TEXT" || strings.HasPrefix(seg, "DESC") {
			return true
		}
	}
	return false
}

func hasSegment(base, seg string) bool {
	for _, s := range strings.Split(base, "_") {
		if s == seg {
			return true
		}
	}
	return false
}

func byStructure(block *label.Node) (Category, bool) {
	switch {
	case block.Has("LINES") && block.Has("LINE_SAMPLES"):
		return CategoryImage, true
	case block.Has("CORE_ITEMS"):
		return CategoryQube, true
	case block.Has("AXIS_ITEMS"):
		return CategoryArray, true
	case block.Has("ROWS") || block.Has("COLUMNS"):
		return CategoryTable, true
	}
	return CategoryOpaque, false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
