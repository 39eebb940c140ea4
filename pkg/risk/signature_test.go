package risk

import (
	"fmt"
	"testing"
)

// signedPDF returns a PDF whose single signature covers the whole file.
func signedPDF() string {
	const tmpl = "%%PDF-1.7\n1 0 obj << /Type /Sig /ByteRange [0 10 20 %04d] >>\nendobj\n%%%%EOF\n"
	sample := fmt.Sprintf(tmpl, 0)
	trimmed := len(sample) - 1
	return fmt.Sprintf(tmpl, trimmed-20)
}

func TestInferSignature(t *testing.T) {
	tests := []struct {
		name string
		data string
		want SignatureInfo
	}{
		{"unsigned", "%PDF-1.4\n%%EOF\n", SignatureInfo{Intact: true}},
		{"sig dictionary without byte range", "%PDF-1.4 << /Type /Sig >> %%EOF", SignatureInfo{Signed: true, Intact: true}},
		{"covers whole file", signedPDF(), SignatureInfo{Signed: true, Intact: true}},
		{"appended after signing", signedPDF() + "2 0 obj << >>\nendobj\nstartxref\n99\n%%EOF\n", SignatureInfo{Signed: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := InferSignature([]byte(tc.data))
			if got != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestInferEncrypted(t *testing.T) {
	tests := []struct {
		data string
		want bool
	}{
		{"trailer << /Root 1 0 R /Encrypt 12 0 R >>", true},
		{"trailer << /Encrypt 12 0 R\n>>", true},
		{"<< /Filter /Standard /V 2 >>", false},
		{"trailer << /Root 1 0 R >>", false},
	}
	for _, tc := range tests {
		if got := InferEncrypted([]byte(tc.data)); got != tc.want {
			t.Errorf("InferEncrypted(%q): expected %v, got %v", tc.data, tc.want, got)
		}
	}
}

func TestBound(t *testing.T) {
	tests := []struct {
		penalty, base, want int
	}{
		{5, 10, 5},
		{15, 10, 10},
		{-3, 10, 0},
		{-2, -4, -2},
		{-9, -4, -4},
		{3, -4, 0},
		{0, 0, 0},
	}
	for _, tc := range tests {
		if got := bound(tc.penalty, tc.base); got != tc.want {
			t.Errorf("bound(%d, %d): expected %d, got %d", tc.penalty, tc.base, tc.want, got)
		}
	}
}

func TestScaled(t *testing.T) {
	if got := scaled(6, 0.6); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := scaled(-4, 0.3); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
