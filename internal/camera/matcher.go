// Package camera implements the ranked camera-matching engine: USB
// fingerprint and serial-number device lookup, make/model device
// heuristics, and the data-driven profile rule engine, grounded on
// original_source/src-tauri/src/camera/matcher.rs (priority cascade) with
// the rule engine built directly from spec.md §4.3, since the Rust
// original's rule-engine source was not retrieved into original_source/.
package camera

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmylchreest/camvault/internal/models"
	"github.com/jmylchreest/camvault/internal/repository"
)

// MatcherVersion stamps every MatchAudit so a later change to the rule
// engine's weights is visible in persisted records.
const MatcherVersion = 1

// MatchSource names which cascade step produced the winning match.
type MatchSource string

const (
	MatchSourceDeviceUSB       MatchSource = "device-usb"
	MatchSourceDeviceSerial    MatchSource = "device-serial"
	MatchSourceDeviceHeuristic MatchSource = "device-heuristic"
	MatchSourceAppProfile      MatchSource = "app-profile"
	MatchSourceBundledProfile  MatchSource = "bundled-profile"
	MatchSourceFilename        MatchSource = "filename"
	MatchSourceGenericFallback MatchSource = "generic-fallback"
)

// InputSignature snapshots everything the matcher consulted, so an
// offline rematch can reproduce the same decision without touching
// source media.
type InputSignature struct {
	Make            string   `json:"make,omitempty"`
	Model           string   `json:"model,omitempty"`
	Codec           string   `json:"codec,omitempty"`
	Container       string   `json:"container,omitempty"`
	Width           int      `json:"width,omitempty"`
	Height          int      `json:"height,omitempty"`
	FPS             float64  `json:"fps,omitempty"`
	FolderPath      string   `json:"folderPath,omitempty"`
	Filename        string   `json:"filename,omitempty"`
	Serial          string   `json:"serial,omitempty"`
	USBFingerprints []string `json:"usbFingerprints,omitempty"`
}

// Candidate is one profile the rule engine evaluated, win or lose.
type Candidate struct {
	ProfileRef string   `json:"profileRef"`
	Confidence float64  `json:"confidence"`
	Matched    []string `json:"matched"`
	Failed     []string `json:"failed"`
}

// MatchAudit is the reproducible decision record attached to every clip.
type MatchAudit struct {
	MatchedAt      time.Time       `json:"matchedAt"`
	MatcherVersion int             `json:"matcherVersion"`
	MatchSource    MatchSource     `json:"matchSource"`
	InputSignature InputSignature  `json:"inputSignature"`
	Candidates     []Candidate     `json:"candidates"`
	Winner         Candidate       `json:"winner"`
}

// Result is the matcher's final decision for one clip.
type Result struct {
	ProfileType string // "profile" or "device"
	ProfileRef  string
	DeviceUUID  string
	Confidence  float64
	Reason      string
	Audit       MatchAudit
}

// Matcher evaluates the ranked priority cascade against registered
// devices and camera profiles.
type Matcher struct {
	profiles repository.CameraProfileRepository
	devices  repository.CameraDeviceRepository
}

// New creates a Matcher over the given repositories.
func New(profiles repository.CameraProfileRepository, devices repository.CameraDeviceRepository) *Matcher {
	return &Matcher{profiles: profiles, devices: devices}
}

// Match runs the full cascade and returns the winning result, never an
// error for an unmatched clip — an unmatched clip falls through to the
// generic fallback silently, per spec.md §4.3.
func (m *Matcher) Match(ctx context.Context, input InputSignature) (*Result, error) {
	audit := MatchAudit{
		MatchedAt:      time.Now().UTC(),
		MatcherVersion: MatcherVersion,
		InputSignature: input,
	}

	// 1. Custom device by USB fingerprint.
	for _, fp := range input.USBFingerprints {
		device, err := m.devices.GetByUSBFingerprint(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("looking up device by USB fingerprint: %w", err)
		}
		if device != nil {
			return m.deviceResult(device, 1.00, "USB fingerprint match", MatchSourceDeviceUSB, audit), nil
		}
	}

	// 2. Custom device by serial number.
	if input.Serial != "" {
		device, err := m.devices.GetBySerial(ctx, input.Serial)
		if err != nil {
			return nil, fmt.Errorf("looking up device by serial: %w", err)
		}
		if device != nil {
			return m.deviceResult(device, 0.95, "Serial number match", MatchSourceDeviceSerial, audit), nil
		}
	}

	// 3. Custom device by make+model against its linked profile's rules.
	if input.Make != "" && input.Model != "" {
		devices, err := m.devices.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing devices: %w", err)
		}
		for _, device := range devices {
			if device.ProfileID == nil {
				continue
			}
			profile, err := m.profiles.GetByID(ctx, *device.ProfileID)
			if err != nil {
				return nil, fmt.Errorf("loading device profile: %w", err)
			}
			if profile == nil {
				continue
			}
			if containsCI(profile.MatchRules.Make, input.Make) && containsCI(profile.MatchRules.Model, input.Model) {
				return m.deviceResult(device, 0.80, "Make+model match to registered device", MatchSourceDeviceHeuristic, audit), nil
			}
		}
	}

	// 4-5. Rule engine over bundled/app profiles.
	profiles, err := m.profiles.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing camera profiles: %w", err)
	}

	candidates := make([]Candidate, 0, len(profiles))
	var best *Candidate
	var bestOnlyFilename bool

	for _, profile := range profiles {
		score, matched, failed, rejected, onlyFilename := evaluateProfile(profile, input)
		if rejected {
			continue
		}
		c := Candidate{ProfileRef: profile.Name, Confidence: score, Matched: matched, Failed: failed}
		candidates = append(candidates, c)
		if best == nil || score > best.Confidence {
			best = &c
			bestOnlyFilename = onlyFilename
		}
	}
	audit.Candidates = candidates

	if best != nil && best.Confidence > 0 {
		confidence := best.Confidence
		source := MatchSourceBundledProfile
		if bestOnlyFilename {
			confidence = 0.70
			source = MatchSourceFilename
		}
		audit.MatchSource = source
		audit.Winner = Candidate{ProfileRef: best.ProfileRef, Confidence: confidence, Matched: best.Matched, Failed: best.Failed}
		return &Result{
			ProfileType: "profile",
			ProfileRef:  best.ProfileRef,
			Confidence:  confidence,
			Reason:      strings.Join(best.Matched, ", "),
			Audit:       audit,
		}, nil
	}

	// 6. Generic fallback.
	audit.MatchSource = MatchSourceGenericFallback
	audit.Winner = Candidate{ProfileRef: models.GenericFallbackProfileRef, Confidence: 0}
	return &Result{
		ProfileType: "profile",
		ProfileRef:  models.GenericFallbackProfileRef,
		Confidence:  0,
		Reason:      "No camera match (generic fallback)",
		Audit:       audit,
	}, nil
}

func (m *Matcher) deviceResult(device *models.CameraDevice, confidence float64, reason string, source MatchSource, audit MatchAudit) *Result {
	audit.MatchSource = source
	winner := Candidate{ProfileRef: device.UUID, Confidence: confidence, Matched: []string{reason}}
	audit.Winner = winner
	audit.Candidates = []Candidate{winner}
	return &Result{
		ProfileType: "device",
		DeviceUUID:  device.UUID,
		Confidence:  confidence,
		Reason:      reason,
		Audit:       audit,
	}
}

// category weights for the rule engine's weighted sum. They needn't sum
// to 1.0 exactly; what matters is relative ranking and that a
// make/model-driven win outranks a filename-only win, handled separately
// via onlyFilename.
var categoryWeight = map[string]float64{
	"make":       0.25,
	"model":      0.25,
	"codec":      0.10,
	"container":  0.05,
	"resolution": 0.10,
	"fps":        0.05,
	"folderPath": 0.15,
	"filename":   0.15,
}

// evaluateProfile scores one candidate profile against the clip's
// InputSignature. A category with listed values is satisfied if any
// value matches (case-insensitive substring for make/model/codec/
// container, exact for resolution/fps, regex for folderPath/filename);
// a category with listed values that fails to match any of them rejects
// the whole profile. onlyFilename reports whether every satisfied
// category was folderPath/filename (used to demote the match to the
// filename-pattern tier rather than the full rule-engine tier).
func evaluateProfile(p *models.CameraProfile, input InputSignature) (score float64, matched, failed []string, rejected bool, onlyFilename bool) {
	rules := p.MatchRules
	nonPatternMatched := false

	check := func(name string, values []string, test func(string) bool) bool {
		if len(values) == 0 {
			return true // category not specified: neutral
		}
		for _, v := range values {
			if test(v) {
				matched = append(matched, name)
				score += categoryWeight[name]
				return true
			}
		}
		failed = append(failed, name)
		return false
	}

	if !check("make", rules.Make, func(v string) bool { return containsFold(input.Make, v) }) {
		return 0, matched, failed, true, false
	}
	if len(rules.Make) > 0 {
		nonPatternMatched = true
	}
	if !check("model", rules.Model, func(v string) bool { return containsFold(input.Model, v) }) {
		return 0, matched, failed, true, false
	}
	if len(rules.Model) > 0 {
		nonPatternMatched = true
	}
	if !check("codec", rules.Codec, func(v string) bool { return containsFold(input.Codec, v) }) {
		return 0, matched, failed, true, false
	}
	if len(rules.Codec) > 0 {
		nonPatternMatched = true
	}
	if !check("container", rules.Container, func(v string) bool { return containsFold(input.Container, v) }) {
		return 0, matched, failed, true, false
	}
	if len(rules.Container) > 0 {
		nonPatternMatched = true
	}

	if len(rules.Width) > 0 || len(rules.Height) > 0 {
		resMatch := false
		if len(rules.Width) > 0 {
			for _, w := range rules.Width {
				if w == input.Width {
					resMatch = true
				}
			}
		}
		if len(rules.Height) > 0 {
			for _, h := range rules.Height {
				if h == input.Height {
					resMatch = resMatch || true
				}
			}
		}
		if resMatch {
			matched = append(matched, "resolution")
			score += categoryWeight["resolution"]
			nonPatternMatched = true
		} else {
			failed = append(failed, "resolution")
			return 0, matched, failed, true, false
		}
	}

	if len(rules.FPS) > 0 {
		fpsMatch := false
		for _, f := range rules.FPS {
			if f == input.FPS {
				fpsMatch = true
			}
		}
		if fpsMatch {
			matched = append(matched, "fps")
			score += categoryWeight["fps"]
			nonPatternMatched = true
		} else {
			failed = append(failed, "fps")
			return 0, matched, failed, true, false
		}
	}

	if !check("folderPath", rules.FolderPath, func(pattern string) bool { return regexMatches(pattern, input.FolderPath) }) {
		return 0, matched, failed, true, false
	}
	if !check("filename", rules.Filename, func(pattern string) bool { return regexMatches(pattern, input.Filename) }) {
		return 0, matched, failed, true, false
	}

	if score == 0 {
		return 0, matched, failed, true, false
	}

	return score, matched, failed, false, !nonPatternMatched
}

func containsCI(values []string, needle string) bool {
	for _, v := range values {
		if containsFold(needle, v) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func regexMatches(pattern, value string) bool {
	if value == "" {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}
