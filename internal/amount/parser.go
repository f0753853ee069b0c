// Package amount turns OCR or PDF text into candidate Rupiah amounts.
//
// Two passes are made over the text. The primary pass only accepts literals
// preceded by an IDR or Rp marker. The fallback pass, which runs only when
// the primary pass found nothing, accepts bare thousands-grouped numerals
// such as 45.000 or 1,250,000. A marker-less amount is therefore ignored
// whenever a marked amount exists elsewhere in the same text.
package amount

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	markedPattern  = regexp.MustCompile(`(?i)(?:IDR|Rp)\.?\s*([0-9][0-9.,]*)`)
	groupedPattern = regexp.MustCompile(`\b\d{1,3}(?:[.,]\d{3})+\b`)
	separators     = strings.NewReplacer(".", "", ",", "")
)

// ParseAmounts returns the unique candidate amounts found in text, ascending.
// It never fails; unparseable tokens are dropped.
func ParseAmounts(text string) []int64 {
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)

	var found []int64
	for _, m := range markedPattern.FindAllStringSubmatch(flat, -1) {
		if v, ok := normalizeMarked(m[1]); ok {
			found = append(found, v)
		}
	}

	if len(found) == 0 {
		for _, token := range groupedPattern.FindAllString(flat, -1) {
			if v, ok := ParseGroupedNumeral(token); ok {
				found = append(found, v)
			}
		}
	}

	return uniqueSorted(found)
}

// ParseGroupedNumeral strips every '.' and ',' from token and parses the rest.
func ParseGroupedNumeral(token string) (int64, bool) {
	digits := separators.Replace(strings.TrimSpace(token))
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalizeMarked interprets the numeric literal that followed a currency
// marker. A final two-digit segment is a fractional part and is dropped.
func normalizeMarked(literal string) (int64, bool) {
	s := strings.ReplaceAll(literal, ",", ".")
	if i := strings.LastIndex(s, "."); i >= 0 {
		if tail := s[i+1:]; len(tail) == 2 {
			s = s[:i]
		}
	}
	return ParseGroupedNumeral(s)
}

func uniqueSorted(values []int64) []int64 {
	seen := make(map[int64]bool, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Max returns the largest value, or false when values is empty.
func Max(values []int64) (int64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	return best, true
}

// FormatRupiah renders v with '.' thousands grouping, e.g. "Rp 1.250.000".
func FormatRupiah(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "Rp " + sign + b.String()
}
