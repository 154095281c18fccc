package normalize

import (
	"reflect"
	"testing"
)

func TestNormalize_Lowercase(t *testing.T) {
	tokens := Normalize("Instant Pot DUO 6-Quart")

	want := []string{"instant", "pot", "duo", "6", "quart"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Normalize returned %v, want %v", tokens, want)
	}
}

func TestNormalize_Deduplicates(t *testing.T) {
	tokens := Normalize("pot pot POT pan")

	want := []string{"pot", "pan"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Normalize returned %v, want %v", tokens, want)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	input := "Philips Avent Digital Video Baby Monitor, Model SCD841/26"

	first := Normalize(input)
	for i := 0; i < 10; i++ {
		if got := Normalize(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("Normalize not deterministic: run %d returned %v, first run %v", i, got, first)
		}
	}
}

func TestNormalize_FoldsDiacritics(t *testing.T) {
	if got := Normalize("Nescafé"); !reflect.DeepEqual(got, []string{"nescafe"}) {
		t.Errorf("Normalize returned %v, want [nescafe]", got)
	}
}

func TestExtractKeywords_FiltersStopWordsAndShortTokens(t *testing.T) {
	keywords := ExtractKeywords("The pressure cooker was recalled due to a burn hazard", 10)

	want := []string{"pressure", "cooker", "burn", "hazard"}
	if !reflect.DeepEqual(keywords, want) {
		t.Errorf("ExtractKeywords returned %v, want %v", keywords, want)
	}
}

func TestExtractKeywords_RespectsMaxCount(t *testing.T) {
	keywords := ExtractKeywords("alpha bravo charlie delta echo foxtrot golf", 3)

	if len(keywords) != 3 {
		t.Fatalf("Expected 3 keywords, got %d: %v", len(keywords), keywords)
	}
	// First-seen order must be preserved under truncation
	want := []string{"alpha", "bravo", "charlie"}
	if !reflect.DeepEqual(keywords, want) {
		t.Errorf("ExtractKeywords returned %v, want %v", keywords, want)
	}
}

func TestExtractKeywords_EmptyInput(t *testing.T) {
	if got := ExtractKeywords("", 10); len(got) != 0 {
		t.Errorf("Expected no keywords for empty input, got %v", got)
	}
}

func TestExtractBrandKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "comma separated",
			input: "Instant Brands, Corelle",
			want:  []string{"instant", "brands", "corelle"},
		},
		{
			name:  "drops single characters",
			input: "L G Electronics",
			want:  []string{"electronics"},
		},
		{
			name:  "caps at five tokens",
			input: "one two three four five six seven",
			want:  []string{"one", "two", "three", "four", "five"},
		},
		{
			name:  "keeps stop words",
			input: "The North Face",
			want:  []string{"the", "north", "face"},
		},
		{
			name:  "empty",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBrandKeywords(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractBrandKeywords(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
