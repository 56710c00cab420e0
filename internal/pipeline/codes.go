package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

var (
	productFeatureCode    = regexp.MustCompile(`PF-[A-Z]+-\d+\.\d+`)
	capabilityCode        = regexp.MustCompile(`CA-[A-Z]+-\d+\.\d+`)
	technicalFunctionCode = regexp.MustCompile(`TE-[A-Z]+-\d+\.?\d*`)
	labelParts            = regexp.MustCompile(`^(PF-[A-Z]+)-(\d+)\.(\d+)$`)
)

// extractCodes returns the sorted, deduplicated set of matches of re across
// the given texts. Pure; no side effects.
func extractCodes(re *regexp.Regexp, texts ...string) []string {
	seen := map[string]struct{}{}
	for _, text := range texts {
		for _, code := range re.FindAllString(text, -1) {
			seen[code] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// ExtractProductFeatureCodes returns the unique PF codes embedded in the texts.
func ExtractProductFeatureCodes(texts ...string) []string {
	return extractCodes(productFeatureCode, texts...)
}

// ExtractCapabilityCodes returns the unique CA codes embedded in the texts.
func ExtractCapabilityCodes(texts ...string) []string {
	return extractCodes(capabilityCode, texts...)
}

// ExtractTechnicalFunctionCodes returns the unique TE codes embedded in the texts.
func ExtractTechnicalFunctionCodes(texts ...string) []string {
	return extractCodes(technicalFunctionCode, texts...)
}

// InferDependencies returns the predecessor labels implied by a product
// feature label. PF-X-n.m with m greater than 1 depends on PF-X-n.1 through
// PF-X-n.(m-1) even when the details text never states it. Labels that do not
// match the PF format infer nothing.
func InferDependencies(label string) []string {
	m := labelParts.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	prefix, major := m[1], m[2]
	minor, _ := strconv.Atoi(m[3])
	if minor <= 1 {
		return nil
	}
	deps := make([]string, 0, minor-1)
	for i := 1; i < minor; i++ {
		deps = append(deps, fmt.Sprintf("%s-%s.%d", prefix, major, i))
	}
	return deps
}

// mergeCodes unions two sorted code sets into one sorted, deduplicated slice.
func mergeCodes(a, b []string) []string {
	if len(a) == 0 {
		return append([]string(nil), b...)
	}
	if len(b) == 0 {
		return append([]string(nil), a...)
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
