// ABOUTME: Salient-term scoring used for heuristic chapter titles
// ABOUTME: Ranks terms by how much more frequent they are in a chapter than overall
package core

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const minTermLetters = 3

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all also am an and any are aren't as at
		be because been before being below between both but by can can't cannot could
		did didn't do does doesn't doing don't down during each even every few for from
		further get gets getting go goes going gonna got had has have having he her here
		hers herself him himself his how i if in into is isn't it it's its itself just
		kind know let let's like lot make many may me might more most much must my
		myself need no nor not now of off okay on once one only or other our ours
		ourselves out over own really right said same say see she should so some
		something such than that that's the their theirs them themselves then there
		there's these they they're thing things think this those through to too
		um uh under until up us very want was wasn't way we we're well were what
		when where which while who whom why will with would yeah yes you you're your
		yours yourself yourselves actually basically going gonna okay sort stuff
	`) {
		stopwords[w] = struct{}{}
	}
}

// termStats holds content-term frequencies for a span of text
type termStats struct {
	counts map[string]int
	total  int
}

func newTermStats() termStats {
	return termStats{counts: make(map[string]int)}
}

// add counts the content terms of text
func (s *termStats) add(text string) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		w = strings.Trim(w, "'")
		if letterCount(w) < minTermLetters {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		s.counts[w]++
		s.total++
	}
}

func letterCount(w string) int {
	n := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

type scoredTerm struct {
	term  string
	score float64
}

// salientTerms returns up to k terms ranked by tf_c * (tf_c/|c|) / (tf_all/|all|),
// ties broken alphabetically
func salientTerms(chapter, corpus termStats, k int) []string {
	if chapter.total == 0 || corpus.total == 0 || k <= 0 {
		return nil
	}

	scored := make([]scoredTerm, 0, len(chapter.counts))
	for term, tf := range chapter.counts {
		all := corpus.counts[term]
		if all == 0 {
			all = tf
		}
		local := float64(tf) / float64(chapter.total)
		global := float64(all) / float64(corpus.total)
		scored = append(scored, scoredTerm{term: term, score: float64(tf) * local / global})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].term < scored[j].term
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.term
	}
	return out
}

// titleCase joins terms and capitalizes each word. Casers hold state, so
// each call builds its own.
func titleCase(terms []string) string {
	return cases.Title(language.English).String(strings.Join(terms, " "))
}
