package irs

import (
	"fmt"
	"time"
)

// Batch suffixes used for the monthly bulk archives. The primary month is
// tried under both conventions; neighbor months only under the first.
var batchSuffixes = [2]string{"A", "B"}

// Offsets (in months) around the primary month to also try. The same
// filing can land in an adjacent batch depending on processing lag.
var neighborOffsets = [4]int{-1, 1, 2, -2}

// filingDate decodes the 4-digit year and 2-digit day-ordinal embedded in
// an object ID. Malformed identifiers fall back to January of the current
// year: a wrong guess only wastes fetches, the candidate list is exhausted
// either way.
func filingDate(objectID string, now time.Time) (int, time.Month) {
	year, ok := parseDigits(objectID, 0, 4)
	if !ok {
		return now.Year(), time.January
	}
	ordinal, ok := parseDigits(objectID, 4, 6)
	if !ok || ordinal < 1 {
		return now.Year(), time.January
	}
	date := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, ordinal-1)
	return date.Year(), date.Month()
}

func parseDigits(s string, start, end int) (int, bool) {
	if len(s) < end {
		return 0, false
	}
	value := 0
	for i := start; i < end; i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		value = value*10 + int(s[i]-'0')
	}
	return value, true
}

// CandidateZipURLs derives the ordered list of bulk-archive URLs likely to
// contain the filing identified by objectID: the primary month under both
// batch suffixes, then four neighboring months under the primary suffix.
func CandidateZipURLs(baseURL, objectID string, now time.Time) []string {
	year, month := filingDate(objectID, now)

	urls := make([]string, 0, len(batchSuffixes)+len(neighborOffsets))
	for _, suffix := range batchSuffixes {
		urls = append(urls, zipURL(baseURL, year, int(month), suffix))
	}
	for _, offset := range neighborOffsets {
		shifted := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
		urls = append(urls, zipURL(baseURL, shifted.Year(), int(shifted.Month()), batchSuffixes[0]))
	}
	return urls
}

func zipURL(baseURL string, year, month int, suffix string) string {
	return fmt.Sprintf("%s/%d/%d_TEOS_XML_%02d%s.zip", baseURL, year, year, month, suffix)
}

// EntryName is the name of the filing document inside a bulk archive.
func EntryName(objectID string) string {
	return objectID + "_public.xml"
}
