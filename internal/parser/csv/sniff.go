package csv

import "strings"

// sniffLines caps how many sample lines are inspected.
const sniffLines = 50

// sniffDelimiter guesses the delimiter of sample. For every candidate it
// counts occurrences outside quotes on each line and takes the most common
// count; the candidate whose count is consistent on the most lines wins,
// with ties going to the larger count and then to list order. It reports
// false when no candidate appears at all.
func sniffDelimiter(sample string) (rune, bool) {
	lines := strings.Split(strings.ReplaceAll(sample, "\r\n", "\n"), "\n")
	var nonEmpty []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
		if len(nonEmpty) == sniffLines {
			break
		}
	}
	if len(nonEmpty) == 0 {
		return 0, false
	}

	var (
		best           rune
		bestConsistent = -1
		bestCount      int
	)
	for _, d := range Delimiters {
		freq := make(map[int]int)
		for _, l := range nonEmpty {
			freq[countOutsideQuotes(l, d)]++
		}
		mode, consistent := 0, 0
		for n, hits := range freq {
			if n == 0 {
				continue
			}
			if hits > consistent || (hits == consistent && n > mode) {
				mode, consistent = n, hits
			}
		}
		if mode == 0 {
			continue
		}
		if consistent > bestConsistent || (consistent == bestConsistent && mode > bestCount) {
			best, bestConsistent, bestCount = d, consistent, mode
		}
	}
	return best, bestConsistent > 0
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == d && !inQuotes:
			n++
		}
	}
	return n
}

// candidateDelimiters returns the sniffed delimiter (if any) followed by
// the fixed fallback list, without repeats.
func candidateDelimiters(sample string) []rune {
	out := make([]rune, 0, len(Delimiters)+1)
	if d, ok := sniffDelimiter(sample); ok {
		out = append(out, d)
	}
	for _, d := range Delimiters {
		dup := false
		for _, have := range out {
			if have == d {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	return out
}
