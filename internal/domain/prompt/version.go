package prompt

import (
	"cmp"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"slices"
	"strings"
	"time"
)

type ChangeType string

const (
	ChangeMajor ChangeType = "major"
	ChangeMinor ChangeType = "minor"
	ChangePatch ChangeType = "patch"
)

const InitialVersion = "v1.0.0"

// Change ratio thresholds. Above majorThreshold is major, above
// minorThreshold is minor, anything else is patch.
const (
	majorThreshold = 0.5
	minorThreshold = 0.1
)

var versionPattern = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)$`)

// Semver is a parsed v<major>.<minor>.<patch> string. Components are
// canonical decimal strings (no leading zeros) of any width.
type Semver struct {
	Major string
	Minor string
	Patch string
}

func (s Semver) String() string {
	return "v" + s.Major + "." + s.Minor + "." + s.Patch
}

// Compare returns -1, 0 or 1.
func (s Semver) Compare(o Semver) int {
	switch {
	case s.Major != o.Major:
		return cmpDecimal(s.Major, o.Major)
	case s.Minor != o.Minor:
		return cmpDecimal(s.Minor, o.Minor)
	default:
		return cmpDecimal(s.Patch, o.Patch)
	}
}

// cmpDecimal orders canonical decimal strings: longer is larger, equal
// lengths compare digit by digit.
func cmpDecimal(a, b string) int {
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return strings.Compare(a, b)
}

func canonical(digits string) string {
	if d := strings.TrimLeft(digits, "0"); d != "" {
		return d
	}
	return "0"
}

func increment(digits string) string {
	n, _ := new(big.Int).SetString(digits, 10)
	return n.Add(n, big.NewInt(1)).String()
}

// ParseVersion parses a strict v<int>.<int>.<int> string. There is no upper
// bound on a component.
func ParseVersion(s string) (Semver, bool) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Semver{}, false
	}
	return Semver{Major: canonical(m[1]), Minor: canonical(m[2]), Patch: canonical(m[3])}, true
}

func IsValidVersion(s string) bool {
	_, ok := ParseVersion(s)
	return ok
}

// GenerateVersion bumps current by changeType. A malformed current version
// yields InitialVersion; that case is logged because it means stored data is
// corrupt, not that the prompt is new.
func GenerateVersion(current string, changeType ChangeType) string {
	v, ok := ParseVersion(current)
	if !ok {
		slog.Warn("malformed version string, falling back to initial version",
			"op", "generate", "version", current, "fallback", InitialVersion)
		return InitialVersion
	}

	switch changeType {
	case ChangeMajor:
		v = Semver{Major: increment(v.Major), Minor: "0", Patch: "0"}
	case ChangeMinor:
		v = Semver{Major: v.Major, Minor: increment(v.Minor), Patch: "0"}
	case ChangePatch:
		v.Patch = increment(v.Patch)
	}
	return v.String()
}

// CompareVersions returns a value whose sign matches a - b. If either side is
// malformed it returns 0 and logs.
func CompareVersions(a, b string) int {
	va, okA := ParseVersion(a)
	vb, okB := ParseVersion(b)
	if !okA || !okB {
		slog.Warn("malformed version string in comparison, treating as equal",
			"op", "compare", "a", a, "b", b)
		return 0
	}
	return va.Compare(vb)
}

// DetectChangeType classifies an edit. Any title change is minor; otherwise
// the content change ratio decides.
func DetectChangeType(oldContent, newContent, oldTitle, newTitle string) ChangeType {
	if oldTitle != newTitle {
		return ChangeMinor
	}

	ratio := ChangeRatio(oldContent, newContent)
	switch {
	case ratio > majorThreshold:
		return ChangeMajor
	case ratio > minorThreshold:
		return ChangeMinor
	default:
		return ChangePatch
	}
}

// whitespace splits tokens. Leading or trailing whitespace yields an empty
// edge token, so adding a trailing newline counts as a change.
var whitespace = regexp.MustCompile(`\s+`)

// ChangeRatio is 1 - |common tokens| / max(len(old tokens), len(new tokens)),
// where common tokens is the intersection of the two whitespace token sets.
func ChangeRatio(oldText, newText string) float64 {
	if oldText == newText {
		return 0
	}
	if oldText == "" || newText == "" {
		return 1
	}

	oldWords := whitespace.Split(oldText, -1)
	newWords := whitespace.Split(newText, -1)
	maxLen := max(len(oldWords), len(newWords))
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(commonWords(oldWords, newWords))/float64(maxLen)
}

func commonWords(a, b []string) int {
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[w] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	common := 0
	for _, w := range a {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := setB[w]; ok {
			common++
		}
	}
	return common
}

// DescribeChange is the auto-generated changes text for a change type.
func DescribeChange(changeType ChangeType) string {
	switch changeType {
	case ChangeMajor:
		return "Major update: content structure changed significantly"
	case ChangeMinor:
		return "Minor update: new content or title change"
	case ChangePatch:
		return "Patch: small fixes or wording tweaks"
	default:
		return "Content update"
	}
}

// CreateVersion builds the snapshot for p's current fields. It does not
// append it; the caller owns the prompt and its persistence.
func CreateVersion(p Prompt, changes string) Version {
	v, _ := ClassifyVersion(p, changes)
	return v
}

// ClassifyVersion is CreateVersion that also returns the change type the
// edit was classified as. The first snapshot reports ChangeMajor.
func ClassifyVersion(p Prompt, changes string) (Version, ChangeType) {
	changeType := ChangeMajor
	next := InitialVersion
	if n := len(p.Versions); n > 0 {
		last := p.Versions[n-1]
		changeType = DetectChangeType(last.Content, p.Content, last.Title, p.Title)
		next = GenerateVersion(p.Version, changeType)
	}

	if changes == "" {
		changes = DescribeChange(changeType)
	}
	return Version{
		Version:     next,
		Content:     p.Content,
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   time.Now().UTC(),
		Changes:     changes,
	}, changeType
}

// ApplyVersion returns a copy of p with its text fields and Version taken
// from the named snapshot. p is not modified and Versions is left as is.
func ApplyVersion(p Prompt, version string) (Prompt, error) {
	target, ok := p.FindVersion(version)
	if !ok {
		return Prompt{}, fmt.Errorf("apply version %s: %w", version, ErrVersionNotFound)
	}

	out := p.Clone()
	out.Title = target.Title
	out.Content = target.Content
	out.Description = target.Description
	out.Version = target.Version
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

// VersionHistory returns the snapshots newest semantic version first. The
// append order of p.Versions is not touched.
func VersionHistory(p Prompt) []Version {
	out := slices.Clone(p.Versions)
	slices.SortStableFunc(out, func(a, b Version) int {
		return CompareVersions(b.Version, a.Version)
	})
	return out
}

// LatestVersion returns the semantically greatest snapshot, which is not
// necessarily the last one appended.
func LatestVersion(p Prompt) (Version, bool) {
	if len(p.Versions) == 0 {
		return Version{}, false
	}
	latest := p.Versions[0]
	for _, v := range p.Versions[1:] {
		if CompareVersions(v.Version, latest.Version) > 0 {
			latest = v
		}
	}
	return latest, true
}

func HasNewerVersion(p Prompt, version string) bool {
	latest, ok := LatestVersion(p)
	if !ok {
		return false
	}
	return CompareVersions(latest.Version, version) > 0
}

// Suggestions lists the next version for each change type.
type Suggestions struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
	Patch string `json:"patch"`
}

func SuggestNextVersions(current string) Suggestions {
	return Suggestions{
		Major: GenerateVersion(current, ChangeMajor),
		Minor: GenerateVersion(current, ChangeMinor),
		Patch: GenerateVersion(current, ChangePatch),
	}
}
