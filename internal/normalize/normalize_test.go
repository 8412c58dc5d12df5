package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestArabic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"basmala with harakat", "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ", "بسم الله الرحمن الرحيم"},
		{"hamza alef forms", "إِيَّاكَ نَعْبُدُ وَإِيَّاكَ نَسْتَعِينُ", "اياك نعبد واياك نستعين"},
		{"alef wasla", "ٱلْحَمْدُ لِلَّهِ رَبِّ ٱلْعَٰلَمِينَ", "الحمد لله رب العلمين"},
		{"madda", "آمَنُوا", "امنوا"},
		{"alef maqsura", "عَلَىٰ", "علي"},
		{"ta marbuta", "الصَّلَوٰةَ", "الصلوه"},
		{"punctuation", "رَحْمَةٌ!!", "رحمه"},
		{"ayah end sign kept digit", "مَالِكِ يَوْمِ الدِّينِ ۝٤", "مالك يوم الدين ٤"},
		{"only punctuation", "  ، . ؟ ", ""},
		{"only tatweel", "ـــ", ""},
		{"tatweel inside word", "اللـــه", "الله"},
		{"whitespace collapse", "  قل\tهو \n الله  ", "قل هو الله"},
		{"underscore kept", "a_b", "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Arabic(tt.input))
		})
	}
}

func TestArabic_PureDiacritics(t *testing.T) {
	assert.Empty(t, Arabic("َ ُ ِ ّ ْ"))
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"قل", "هو", "الله", "احد"}, Words("قُلْ هُوَ اللَّهُ أَحَدٌ"))
	assert.Empty(t, Words(""))
	assert.Equal(t, 4, WordCount("قُلْ هُوَ اللَّهُ أَحَدٌ"))
}

func TestFirstAndLastWords(t *testing.T) {
	text := "قُلْ هُوَ اللَّهُ أَحَدٌ"

	tests := []struct {
		name string
		fn   func(string, int) string
		n    int
		want string
	}{
		{"first two", FirstWords, 2, "قل هو"},
		{"first more than available", FirstWords, 9, "قل هو الله احد"},
		{"first zero", FirstWords, 0, ""},
		{"last two", LastWords, 2, "الله احد"},
		{"last more than available", LastWords, 9, "قل هو الله احد"},
		{"last zero", LastWords, 0, ""},
		{"last negative", LastWords, -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(text, tt.n))
		})
	}
}

func FuzzArabic(f *testing.F) {
	seeds := []string{
		"",
		"بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ",
		"ٱلْحَمْدُ لِلَّهِ",
		"ـــ ،،، ؟",
		"مَالِكِ يَوْمِ الدِّينِ ۝٤",
		"hello, world",
		"\xff\xfe",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		once := Arabic(input)
		if !utf8.ValidString(once) {
			t.Fatalf("invalid UTF-8 output for %q", input)
		}
		if twice := Arabic(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
	})
}
