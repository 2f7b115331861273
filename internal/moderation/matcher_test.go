package moderation

import (
	"strings"
	"testing"
	"time"
)

func TestNewMatcher(t *testing.T) {
	m := NewMatcher()
	if m == nil {
		t.Fatal("NewMatcher returned nil")
	}
	if len(m.Lexicon()) == 0 {
		t.Fatal("NewMatcher created an empty lexicon")
	}
	if m.Threshold() != DefaultThreshold {
		t.Errorf("Threshold() = %v, want %v", m.Threshold(), DefaultThreshold)
	}
}

func TestNewMatcherWithTerms_DropsEmptyEntries(t *testing.T) {
	m := NewMatcherWithTerms([]string{"", "...", "   ", "badword"}, nil, DefaultThreshold)

	lex := m.Lexicon()
	if len(lex) != 1 {
		t.Fatalf("expected 1 lexicon entry, got %d (%+v)", len(lex), lex)
	}
	if lex[0].Term != "badword" {
		t.Errorf("lexicon[0].Term = %q, want %q", lex[0].Term, "badword")
	}
}

func TestCheck_DefaultLexicon(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name      string
		input     string
		offensive bool
		reason    string
		term      string
	}{
		{"exact", "fuck", true, ReasonSubstring, "fuck"},
		{"stretched", "fuuuck", true, ReasonSubstring, "fuck"},
		{"uppercase", "FUCK", true, ReasonSubstring, "fuck"},
		{"dotted", "f.u.c.k", true, ReasonSubstring, "fuck"},
		{"spaced", "f u c k", true, ReasonSubstring, "fuck"},
		{"leet in sentence", "what the sh1t", true, ReasonSubstring, "shit"},
		{"exclaim for i", "you are a b!tch", true, ReasonSubstring, "bitch"},
		{"plural", "bitches", true, ReasonSubstring, "bitch"},
		{"stretched short run", "shiiit", true, ReasonSubstring, "shit"},
		{"censored star", "motherf*cker", true, ReasonSimilar, "motherfucker"},
		{"arabic", "يا حمار", true, ReasonSubstring, "يا حمار"},
		{"arabic tatweel", "يـــا حــمـار", true, ReasonSubstring, "يا حمار"},
		{"arabic with ta marbuta", "شرموطة", true, ReasonSubstring, "شرموط"},
		{"arabizi", "ya 7mar", true, ReasonSubstring, "ya 7mar"},
		{"arabizi phrase", "kos omak", true, ReasonSubstring, "kos omak"},
		{"allow listed", "ok", false, ReasonAllowListed, "ok"},
		{"allow listed stretched", "okkk", false, ReasonAllowListed, "ok"},
		{"allow listed arabic", "شكرا", false, ReasonAllowListed, "شكرا"},
		{"one edit from a short term", "duck", false, "", ""},
		{"clean", "hello, how are you?", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.Check(tt.input)
			if result.Offensive != tt.offensive {
				t.Fatalf("Check(%q).Offensive = %v, want %v (reason=%q term=%q)",
					tt.input, result.Offensive, tt.offensive, result.Reason, result.Term)
			}
			if result.Reason != tt.reason {
				t.Errorf("Check(%q).Reason = %q, want %q", tt.input, result.Reason, tt.reason)
			}
			if result.Term != tt.term {
				t.Errorf("Check(%q).Term = %q, want %q", tt.input, result.Term, tt.term)
			}
		})
	}
}

func TestCheck_AllowListIsWholeMessage(t *testing.T) {
	m := NewMatcherWithTerms([]string{"fuck"}, []string{"ok"}, DefaultThreshold)

	if !m.IsOffensive("ok this is fuck") {
		t.Error("IsOffensive(\"ok this is fuck\") = false, want true")
	}
	if m.IsOffensive("ok") {
		t.Error("IsOffensive(\"ok\") = true, want false")
	}
}

func TestCheck_AllowListOverridesSimilarity(t *testing.T) {
	// "duck" is similar enough to "fuck" at 0.75; only the allow-list keeps it clean.
	m := NewMatcherWithTerms([]string{"fuck"}, []string{"duck"}, 0.75)

	if m.IsOffensive("duck") {
		t.Error("IsOffensive(\"duck\") = true, want false when allow-listed")
	}
	if !m.IsOffensive("luck") {
		t.Error("IsOffensive(\"luck\") = false, want true at threshold 0.75")
	}
}

func TestCheck_EmptyMessage(t *testing.T) {
	m := NewMatcherWithTerms([]string{"fuck"}, []string{"ok"}, DefaultThreshold)

	for _, in := range []string{"", "   ", "...", "😂😂"} {
		result := m.Check(in)
		if result.Offensive {
			t.Errorf("Check(%q).Offensive = true, want false", in)
		}
		if result.Reason == ReasonAllowListed {
			t.Errorf("Check(%q) matched the allow-list, but no entry normalizes to empty", in)
		}
	}
}

func TestCheck_EmptyAllowListEntry(t *testing.T) {
	m := NewMatcherWithTerms([]string{"fuck"}, []string{"..."}, DefaultThreshold)

	if got := m.Check("---"); got.Reason != ReasonAllowListed {
		t.Errorf("Check(%q).Reason = %q, want %q", "---", got.Reason, ReasonAllowListed)
	}
}

func TestCheck_ThresholdBoundary(t *testing.T) {
	// Terms built from runes the normalizer leaves untouched, so
	// similarity ratios are exact: 4 edits in 20 runes is 0.80, 4 edits in
	// 19 runes is about 0.79.
	const (
		term20 = "aeiouaeiouaeiouaeiou"
		msg20  = "xeiouxeiouxeiouxeiou"
		term19 = "aeiouaeiouaeiouaeio"
		msg19  = "xeiouxeiouxeiouxeio"
	)

	m20 := NewMatcherWithTerms([]string{term20}, nil, DefaultThreshold)
	result := m20.Check(msg20)
	if !result.Offensive || result.Reason != ReasonSimilar {
		t.Errorf("80%% similar: Check(%q) = %+v, want offensive by similarity", msg20, result)
	}
	if result.Score != 0.8 {
		t.Errorf("80%% similar: Score = %v, want 0.8", result.Score)
	}

	m19 := NewMatcherWithTerms([]string{term19}, nil, DefaultThreshold)
	if m19.IsOffensive(msg19) {
		t.Errorf("79%% similar: IsOffensive(%q) = true, want false", msg19)
	}
}

func TestCheck_ThresholdIsConfigurable(t *testing.T) {
	strict := NewMatcherWithTerms([]string{"fuck"}, nil, DefaultThreshold)
	loose := NewMatcherWithTerms([]string{"fuck"}, nil, 0.75)

	if strict.IsOffensive("duck") {
		t.Error("strict matcher flagged \"duck\"")
	}
	if !loose.IsOffensive("duck") {
		t.Error("loose matcher did not flag \"duck\"")
	}
}

func TestNewMatcherWithTerms_NonPositiveThreshold(t *testing.T) {
	for _, threshold := range []float64{0, -1} {
		m := NewMatcherWithTerms([]string{"fuck"}, nil, threshold)
		if m.Threshold() != DefaultThreshold {
			t.Errorf("threshold %v: Threshold() = %v, want %v", threshold, m.Threshold(), DefaultThreshold)
		}
		if m.IsOffensive("hello") {
			t.Errorf("threshold %v: IsOffensive(%q) = true, want false", threshold, "hello")
		}
	}
}

func TestCheck_EnglishDoesNotSpellArabicTerms(t *testing.T) {
	m := NewMatcher()

	messages := []string{
		"thanks mkay",
		"looks mkay to me",
		"works mkay",
		"books mkay",
		"he asks mom",
		"the task manager",
		"risk management",
		"thanks mike",
		"kiss me kate",
		"the books must go",
		"send the kids more snacks",
	}
	for _, msg := range messages {
		if result := m.Check(msg); result.Offensive {
			t.Errorf("Check(%q) was flagged (reason=%q term=%q), expected clean", msg, result.Reason, result.Term)
		}
	}
}

func TestCheck_ArabicTermsInMixedMessages(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		input string
		term  string
	}{
		{"lol يا حمار", "يا حمار"},
		{"haha كسمك", "كسمك"},
		{"u r شرموطة 100%", "شرموط"},
		{"ك س م ك", "كسمك"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := m.Check(tt.input)
			if !result.Offensive || result.Term != tt.term {
				t.Errorf("Check(%q) = %+v, want offensive with term %q", tt.input, result, tt.term)
			}
		})
	}
}

func TestCheck_CleanMessages(t *testing.T) {
	m := NewMatcher()

	messages := []string{
		"hello, how are you?",
		"nice weather today",
		"what are your hobbies?",
		"I love programming",
		"do you like music?",
		"I need to assess the situation",
		"the grape harvest was great",
		"the classic car",
		"duck duck goose",
		"shift",
		"fork",
		"كيف حالك يا صديقي",
		"السلام عليكم",
		"الله يعطيك العافية",
		"تسجيل الدخول",
		"مرحبا بالجميع",
		"",
	}

	for _, msg := range messages {
		result := m.Check(msg)
		if result.Offensive {
			t.Errorf("Check(%q) was flagged (reason=%q term=%q), expected clean", msg, result.Reason, result.Term)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "", 0},
		{"duck", "fuck", 0.75},
		{"حمار", "حمير", 0.75},
		{"aeioa", "aeiox", 0.8},
	}

	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"abc", []string{"abc"}},
		{"abc def", []string{"abc", "def"}},
		{"مرحبا abc", []string{"مرحبا", "abc"}},
		{"a1--b2", []string{"a1", "b2"}},
	}

	for _, tt := range tests {
		got := tokenize(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLoadTerms(t *testing.T) {
	input := "# comment\n\n  fuck  \nshit\n# another\nيا حمار\n"
	terms, err := LoadTerms(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadTerms() error: %v", err)
	}
	want := []string{"fuck", "shit", "يا حمار"}
	if len(terms) != len(want) {
		t.Fatalf("LoadTerms() = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, terms[i], want[i])
		}
	}
}

func TestLoadTermsFile_Missing(t *testing.T) {
	if _, err := LoadTermsFile("/nonexistent/lexicon.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultLists(t *testing.T) {
	if len(DefaultLexicon()) == 0 {
		t.Error("DefaultLexicon() is empty")
	}
	if len(DefaultAllowList()) == 0 {
		t.Error("DefaultAllowList() is empty")
	}
}

// BenchmarkCheck measures the fuzzy pass, the slow path for clean messages.
func BenchmarkCheck(b *testing.B) {
	m := NewMatcher()
	msg := "hey how are you doing today? I love chatting about music and movies."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Check(msg)
	}
}

// TestPerformance keeps a clean message under 5ms on average.
func TestPerformance(t *testing.T) {
	m := NewMatcher()
	msg := "hey how are you doing today? I love chatting about music and movies."

	const iterations = 200
	start := time.Now()
	for i := 0; i < iterations; i++ {
		m.Check(msg)
	}
	avg := time.Since(start) / iterations
	t.Logf("average Check latency: %s", avg)

	if avg > 5*time.Millisecond {
		t.Errorf("Check latency %s exceeds 5ms", avg)
	}
}
