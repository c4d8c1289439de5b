package manifest

import "strings"

// Authority classifies the issuing authority of a source. Free-form manifest
// values are resolved to one of these variants once, at the parse boundary.
type Authority string

const (
	AuthorityFederal    Authority = "federal"
	AuthorityState      Authority = "state"
	AuthorityLocal      Authority = "local"
	AuthorityJudicial   Authority = "judicial"
	AuthorityRegulatory Authority = "regulatory"
	AuthoritySecondary  Authority = "secondary"
	AuthorityUnknown    Authority = "unknown"
)

// DocumentType classifies the kind of legal document a source represents.
type DocumentType string

const (
	DocumentTypeStatute    DocumentType = "statute"
	DocumentTypeRegulation DocumentType = "regulation"
	DocumentTypeCase       DocumentType = "case"
	DocumentTypeGuidance   DocumentType = "guidance"
	DocumentTypeArticle    DocumentType = "article"
	DocumentTypeUnknown    DocumentType = "unknown"
)

var authorityAliases = map[string]Authority{
	"federal":     AuthorityFederal,
	"national":    AuthorityFederal,
	"state":       AuthorityState,
	"provincial":  AuthorityState,
	"local":       AuthorityLocal,
	"municipal":   AuthorityLocal,
	"judicial":    AuthorityJudicial,
	"court":       AuthorityJudicial,
	"case_law":    AuthorityJudicial,
	"regulatory":  AuthorityRegulatory,
	"agency":      AuthorityRegulatory,
	"secondary":   AuthoritySecondary,
	"commentary":  AuthoritySecondary,
	"academic":    AuthoritySecondary,
	"unknown":     AuthorityUnknown,
	"unspecified": AuthorityUnknown,
}

var documentTypeAliases = map[string]DocumentType{
	"statute":     DocumentTypeStatute,
	"act":         DocumentTypeStatute,
	"law":         DocumentTypeStatute,
	"regulation":  DocumentTypeRegulation,
	"rule":        DocumentTypeRegulation,
	"case":        DocumentTypeCase,
	"judgment":    DocumentTypeCase,
	"decision":    DocumentTypeCase,
	"guidance":    DocumentTypeGuidance,
	"circular":    DocumentTypeGuidance,
	"article":     DocumentTypeArticle,
	"commentary":  DocumentTypeArticle,
	"blog":        DocumentTypeArticle,
	"unknown":     DocumentTypeUnknown,
	"unspecified": DocumentTypeUnknown,
}

// ParseAuthority maps a free-form manifest value to its Authority variant.
// Unrecognized values resolve to AuthorityUnknown.
func ParseAuthority(value string) Authority {
	if a, ok := authorityAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return a
	}
	return AuthorityUnknown
}

// ParseDocumentType maps a free-form manifest value to its DocumentType
// variant. Unrecognized values resolve to DocumentTypeUnknown.
func ParseDocumentType(value string) DocumentType {
	if d, ok := documentTypeAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return d
	}
	return DocumentTypeUnknown
}

// String returns the canonical string representation.
func (a Authority) String() string { return string(a) }

// String returns the canonical string representation.
func (d DocumentType) String() string { return string(d) }
