package match

import "testing"

func TestNormalize(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase and trim",
			input: "  Wish You Were Here  ",
			want:  "wish you were here",
		},
		{
			name:  "leading article stripped",
			input: "The Beatles",
			want:  "beatles",
		},
		{
			name:  "indefinite article stripped",
			input: "A Day in the Life",
			want:  "day in the life",
		},
		{
			name:  "only one leading article stripped",
			input: "The The",
			want:  "the",
		},
		{
			name:  "ampersand expanded",
			input: "Rock & Roll",
			want:  "rock and roll",
		},
		{
			name:  "digits expanded to words",
			input: "4 Non Blondes",
			want:  "four non blondes",
		},
		{
			name:  "adjacent digits become separate words",
			input: "Track 42",
			want:  "track four two",
		},
		{
			name:  "bracketed segment removed",
			input: "Smells Like Teen Spirit (Remastered 2011)",
			want:  "smells like teen spirit",
		},
		{
			name:  "square brackets removed",
			input: "One More Time [Radio Edit]",
			want:  "one more time",
		},
		{
			name:  "contraction expanded",
			input: "Runnin' Down a Dream",
			want:  "running down a dream",
		},
		{
			name:  "punctuation removed",
			input: "Don't Stop Believin'!",
			want:  "dont stop believing",
		},
		{
			name:  "whitespace collapsed",
			input: "So   Far    Away",
			want:  "so far away",
		},
		{
			name:  "unicode letters survive",
			input: "Héroes del Silencio",
			want:  "héroes del silencio",
		},
		{
			name:  "empty input",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"The Beatles",
		"Rock & Roll",
		"4 Non Blondes",
		"Smells Like Teen Spirit (Remastered 2011)",
		"Runnin' Down a Dream",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not stable for %q: %q != %q", input, once, twice)
		}
	}
}

func TestNormalizeLite(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "article preserved",
			input: "The Beatles",
			want:  "the beatles",
		},
		{
			name:  "digits preserved",
			input: "4 Non Blondes",
			want:  "4 non blondes",
		},
		{
			name:  "ampersand dropped as punctuation",
			input: "Rock & Roll",
			want:  "rock roll",
		},
		{
			name:  "brackets still removed",
			input: "Song Title (Live at Wembley)",
			want:  "song title",
		},
		{
			name:  "case and whitespace",
			input: "  MiXeD   CaSe  ",
			want:  "mixed case",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLite(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeLite(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
