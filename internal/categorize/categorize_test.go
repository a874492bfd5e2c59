package categorize

import "testing"

func TestSuggest(t *testing.T) {
	c := New(nil)
	tests := []struct {
		desc string
		want string
	}{
		{"Supermercado Pão de Açúcar", "Alimentação"},
		{"UBER *TRIP", "Transporte"},
		{"Netflix Assinatura", "Entretenimento"},
		{"FARMÁCIA São João", "Saúde"},
		{"Salário Empresa XYZ", "Trabalho"},
		{"Presente de aniversário", Fallback},
		{"", Fallback},
		// first rule in table order wins
		{"uber para o restaurante", "Alimentação"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := c.Suggest(tt.desc)
			if got.SuggestedCategory != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.desc, got.SuggestedCategory, tt.want)
			}
			if got.Confidence != Confidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, Confidence)
			}
		})
	}
}

func TestNew_CustomRules(t *testing.T) {
	c := New([]Rule{{Keyword: "  PIX ", Category: "Transferência"}, {Keyword: "", Category: "ignored"}})
	if got := c.Suggest("pix recebido"); got.SuggestedCategory != "Transferência" {
		t.Fatalf("got %q", got.SuggestedCategory)
	}
	if got := c.Suggest("supermercado"); got.SuggestedCategory != Fallback {
		t.Fatalf("custom rules must replace defaults, got %q", got.SuggestedCategory)
	}
}
