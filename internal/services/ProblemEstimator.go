package services

import "strings"

const defaultProblemCount = 5

// problemCountRules are matched in order against the lower-cased contest
// name; the first hit wins.
var problemCountRules = []struct {
	marker string
	count  int
}{
	{"educational", 7},
	{"div. 3", 7},
	{"div. 4", 8},
	{"global", 6},
	{"div. 1", 5},
	{"div. 2", 5},
}

// EstimateProblemCount guesses how many problems a contest had from its name.
func EstimateProblemCount(contestName string) int {
	name := strings.ToLower(contestName)
	for _, rule := range problemCountRules {
		if strings.Contains(name, rule.marker) {
			return rule.count
		}
	}
	return defaultProblemCount
}
