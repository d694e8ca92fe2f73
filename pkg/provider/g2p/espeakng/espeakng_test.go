package espeakng_test

import (
	"testing"

	"github.com/arnavam/zylo/pkg/provider/g2p/espeakng"
)

func TestParseIPA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "single word",
			in:   "h_ə_l_ˈoʊ\n",
			want: []string{"h", "ə", "l", "ˈoʊ"},
		},
		{
			name: "two words flatten into one sequence",
			in:   "ð_ə f_ˈɒ_k_s",
			want: []string{"ð", "ə", "f", "ˈɒ", "k", "s"},
		},
		{
			name: "empty output",
			in:   "   \n",
			want: nil,
		},
		{
			name: "stray separators collapse",
			in:   "a__b_ _c",
			want: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := espeakng.ParseIPA(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseIPA(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ParseIPA(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
