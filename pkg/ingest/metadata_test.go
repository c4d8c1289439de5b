package ingest

import (
	"testing"

	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/manifest"
)

func TestResolveSourceKeepsDeclaredFields(t *testing.T) {
	src := resolveSource(manifest.Entry{
		Locator:      "https://example.org/consumer-act.pdf",
		Title:        "Consumer Protection Act",
		Jurisdiction: "DE",
		Authority:    manifest.AuthorityFederal,
	})

	if src.Title != "Consumer Protection Act" {
		t.Errorf("declared title overwritten: %q", src.Title)
	}
	if src.Jurisdiction != "DE" || src.Authority != "federal" {
		t.Errorf("declared metadata lost: %+v", src)
	}
	if src.Kind != common.SourceKindPDF {
		t.Errorf("kind = %v, want pdf from locator extension", src.Kind)
	}
}

func TestResolveSourceDerivesDefaults(t *testing.T) {
	src := resolveSource(manifest.Entry{
		Locator: "https://example.org/laws/product-liability_act.html",
	})

	if src.Kind != common.SourceKindWeb {
		t.Errorf("kind = %v, want web", src.Kind)
	}
	if src.Title != "product liability act" {
		t.Errorf("derived title = %q", src.Title)
	}
	if src.Authority != "" {
		t.Errorf("authority = %q, want empty when the manifest declares none", src.Authority)
	}
}
