package match

import (
	"testing"

	"subgate/metadata"
)

// TestNormalize tests slug normalization of titles and filenames
func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple title",
			input:    "Movie Name",
			expected: "movie.name",
		},
		{
			name:     "Apostrophes dropped",
			input:    "Don't Look Up",
			expected: "dont.look.up",
		},
		{
			name:     "Curly apostrophe dropped",
			input:    "Don’t Look Up",
			expected: "dont.look.up",
		},
		{
			name:     "Runs of separators collapse",
			input:    "Movie -- Name!!(2020)",
			expected: "movie.name.2020",
		},
		{
			name:     "Leading and trailing separators trimmed",
			input:    "...Movie Name...",
			expected: "movie.name",
		},
		{
			name:     "Already normalized",
			input:    "movie.name.2020",
			expected: "movie.name.2020",
		},
		{
			name:     "Uppercase filename",
			input:    "Movie.Name.2020.EN.SRT",
			expected: "movie.name.2020.en.srt",
		},
		{
			name:     "Non-Latin collapses",
			input:    "电影 Movie",
			expected: "movie",
		},
		{
			name:     "Empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			// Normalization is idempotent
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

// TestDetectLanguage tests language detection from filename tokens
func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{
			name:     "English token",
			filename: "Movie.Name.2020.en.srt",
			expected: "en",
		},
		{
			name:     "Long english token",
			filename: "Movie Name (english).srt",
			expected: "en",
		},
		{
			name:     "Simplified chinese",
			filename: "Movie.Name.chs.srt",
			expected: "zh",
		},
		{
			name:     "Traditional chinese",
			filename: "Movie.Name.cht.ass",
			expected: "zh",
		},
		{
			name:     "Chinese beats english when first in priority",
			filename: "Movie.Name.chs.eng.srt",
			expected: "zh",
		},
		{
			name:     "Spanish",
			filename: "pelicula.spa.srt",
			expected: "es",
		},
		{
			name:     "French",
			filename: "film.fre.srt",
			expected: "fr",
		},
		{
			name:     "German",
			filename: "film.ger.srt",
			expected: "de",
		},
		{
			name:     "Portuguese",
			filename: "filme.pt-br.srt",
			expected: "pt",
		},
		{
			name:     "Russian",
			filename: "film.rus.srt",
			expected: "ru",
		},
		{
			name:     "Case insensitive",
			filename: "MOVIE.ENG.SRT",
			expected: "en",
		},
		{
			name:     "No token defaults to english",
			filename: "Movie.Name.2020.srt",
			expected: "en",
		},
		{
			name:     "Token must be word bounded",
			filename: "frenzy.srt",
			expected: "en",
		},
		{
			name:     "Empty defaults to english",
			filename: "",
			expected: "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.filename); got != tt.expected {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.filename, got, tt.expected)
			}
		})
	}
}

// TestBuildSignals tests match signal derivation
func TestBuildSignals(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		mediaID   string
		meta      *metadata.Meta
		expected  Signals
	}{
		{
			name:      "Movie with metadata",
			mediaType: "movie",
			mediaID:   "tt8367814",
			meta:      &metadata.Meta{Name: "Movie Name", Year: "2020"},
			expected:  Signals{TitleSlug: "movie.name", Year: "2020"},
		},
		{
			name:      "Movie without metadata",
			mediaType: "movie",
			mediaID:   "tt8367814",
			meta:      nil,
			expected:  Signals{},
		},
		{
			name:      "Series with metadata and episode",
			mediaType: "series",
			mediaID:   "tt0903747:1:5",
			meta:      &metadata.Meta{Name: "Show Name", Year: "2008"},
			expected:  Signals{TitleSlug: "show.name", Year: "2008", SETag: "s01e05"},
		},
		{
			name:      "Series without metadata still gets tag",
			mediaType: "series",
			mediaID:   "tt123:1:5",
			meta:      nil,
			expected:  Signals{SETag: "s01e05"},
		},
		{
			name:      "Series with two digit numbers",
			mediaType: "series",
			mediaID:   "tt123:12:34",
			meta:      nil,
			expected:  Signals{SETag: "s12e34"},
		},
		{
			name:      "Wide numbers kept unpadded",
			mediaType: "series",
			mediaID:   "tt123:100:5",
			meta:      nil,
			expected:  Signals{SETag: "s100e05"},
		},
		{
			name:      "Malformed series id has no tag",
			mediaType: "series",
			mediaID:   "tt123:1",
			meta:      nil,
			expected:  Signals{},
		},
		{
			name:      "Movie id with colon gets no tag",
			mediaType: "movie",
			mediaID:   "tt123:1:5",
			meta:      nil,
			expected:  Signals{},
		},
		{
			name:      "Other type with metadata",
			mediaType: "other",
			mediaID:   "local:abc",
			meta:      &metadata.Meta{Name: "Thing"},
			expected:  Signals{TitleSlug: "thing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSignals(tt.mediaType, tt.mediaID, tt.meta); got != tt.expected {
				t.Errorf("BuildSignals() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

// TestScore tests filename scoring against match signals
func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		sig      Signals
		expected int
	}{
		{
			name:     "Title and year match",
			filename: "Movie.Name.2020.en.srt",
			sig:      Signals{TitleSlug: "movie.name", Year: "2020"},
			expected: 7,
		},
		{
			name:     "Title only",
			filename: "Movie.Name.1080p.srt",
			sig:      Signals{TitleSlug: "movie.name", Year: "2020"},
			expected: 5,
		},
		{
			name:     "Year only",
			filename: "Other.Film.2020.srt",
			sig:      Signals{TitleSlug: "movie.name", Year: "2020"},
			expected: 2,
		},
		{
			name:     "Episode tag",
			filename: "Show.S01E05.mkv.srt",
			sig:      Signals{SETag: "s01e05"},
			expected: 5,
		},
		{
			name:     "Episode tag plus eng indicator",
			filename: "Show.S01E05.eng.srt",
			sig:      Signals{SETag: "s01e05"},
			expected: 6,
		},
		{
			name:     "Separator-insensitive title match",
			filename: "Movie Name (2020).srt",
			sig:      Signals{TitleSlug: "movie.name", Year: "2020"},
			expected: 7,
		},
		{
			name:     "No signals no indicators",
			filename: "random.file.srt",
			sig:      Signals{},
			expected: 0,
		},
		{
			name:     "Subtitle indicator alone",
			filename: "movie.subs.srt",
			sig:      Signals{},
			expected: 1,
		},
		{
			name:     "Simplified marker indicator",
			filename: "电影.简体.srt",
			sig:      Signals{},
			expected: 1,
		},
		{
			name:     "Traditional marker indicator",
			filename: "電影.繁體.srt",
			sig:      Signals{},
			expected: 1,
		},
		{
			name:     "Everything matches",
			filename: "Show.Name.2008.S01E05.eng.subs.srt",
			sig:      Signals{TitleSlug: "show.name", Year: "2008", SETag: "s01e05"},
			expected: 13,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.filename, tt.sig); got != tt.expected {
				t.Errorf("Score(%q, %+v) = %d, want %d", tt.filename, tt.sig, got, tt.expected)
			}
		})
	}
}

// TestScoreMonotonicity checks that adding matching signals never lowers a score
func TestScoreMonotonicity(t *testing.T) {
	filenames := []string{
		"Movie.Name.2020.en.srt",
		"Show.S01E05.eng.srt",
		"random.srt",
		"电影.简体.srt",
	}
	full := Signals{TitleSlug: "movie.name", Year: "2020", SETag: "s01e05"}
	partials := []Signals{
		{},
		{TitleSlug: full.TitleSlug},
		{TitleSlug: full.TitleSlug, Year: full.Year},
	}

	for _, f := range filenames {
		base := Score(f, Signals{})
		if base < 0 {
			t.Errorf("Score(%q, {}) = %d, want >= 0", f, base)
		}
		prev := base
		for _, sig := range partials[1:] {
			got := Score(f, sig)
			if got < prev {
				t.Errorf("Score(%q, %+v) = %d dropped below %d", f, sig, got, prev)
			}
			prev = got
		}
		if got := Score(f, full); got < prev {
			t.Errorf("Score(%q, full) = %d dropped below %d", f, got, prev)
		}
	}
}
