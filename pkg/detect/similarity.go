package detect

// matcher finds matching blocks between two rune sequences using the
// Ratcliff/Obershelp longest-common-substring recursion. Elements of b that
// occur in more than 1% of a sequence of 200 or more runes are ignored when
// seeding a match, the same popularity heuristic used by common diff tools.
type matcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newMatcher(a, b []rune) *matcher {
	m := &matcher{a: a, b: b, b2j: make(map[rune][]int)}
	for i, r := range b {
		m.b2j[r] = append(m.b2j[r], i)
	}
	if n := len(b); n >= 200 {
		ntest := n/100 + 1
		for r, idxs := range m.b2j {
			if len(idxs) > ntest {
				delete(m.b2j, r)
			}
		}
	}
	return m
}

// longest returns the start in a, start in b and length of the longest
// matching block inside a[alo:ahi] and b[blo:bhi].
func (m *matcher) longest(alo, ahi, blo, bhi int) (int, int, int) {
	besti, bestj, best := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best {
				besti, bestj, best = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti--
		bestj--
		best++
	}
	for besti+best < ahi && bestj+best < bhi && m.a[besti+best] == m.b[bestj+best] {
		best++
	}
	return besti, bestj, best
}

// matched returns the total size of all matching blocks.
func (m *matcher) matched() int {
	return m.matchedIn(0, len(m.a), 0, len(m.b))
}

func (m *matcher) matchedIn(alo, ahi, blo, bhi int) int {
	i, j, k := m.longest(alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	total := k
	if alo < i && blo < j {
		total += m.matchedIn(alo, i, blo, j)
	}
	if i+k < ahi && j+k < bhi {
		total += m.matchedIn(i+k, ahi, j+k, bhi)
	}
	return total
}

// SimilarityRatio returns 2*M/T for two strings, where M is the number of
// runes in matching blocks and T the combined rune length. Two empty strings
// are identical.
func SimilarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(newMatcher(ra, rb).matched()) / float64(total)
}

// ratioUpperBound is the best ratio two sequences of these lengths can reach.
func ratioUpperBound(la, lb int) float64 {
	if la+lb == 0 {
		return 1
	}
	return 2 * float64(min(la, lb)) / float64(la+lb)
}
