package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ChecklistVersion identifies a revision of the safety checklist key set.
// Each version is a superset of the previous one.
type ChecklistVersion int

const (
	ChecklistV1 ChecklistVersion = 1 // PPE only
	ChecklistV2 ChecklistVersion = 2 // PPE, safety plan, lifting, part of heights
	ChecklistV3 ChecklistVersion = 3 // full form

	CurrentChecklistVersion = ChecklistV3
)

type checklistItem struct {
	Key     string
	Label   string
	Section string
	Since   ChecklistVersion
}

// checklistItems is the ordered catalogue of every known flag.
var checklistItems = [...]checklistItem{
	{"highVis", "High-vis vest", "PPE", ChecklistV1},
	{"helmet", "Helmet", "PPE", ChecklistV1},
	{"goggles", "Goggles", "PPE", ChecklistV1},
	{"gloves", "Gloves", "PPE", ChecklistV1},
	{"mask", "Mask", "PPE", ChecklistV1},
	{"earMuffs", "Ear muffs", "PPE", ChecklistV1},
	{"faceGuard", "Face guard", "PPE", ChecklistV1},
	{"harness", "Harness", "PPE", ChecklistV1},
	{"boots", "Safety boots", "PPE", ChecklistV1},

	{"knowSafeJob", "Knows the safe job procedure", "Safety plan", ChecklistV2},
	{"weatherCheck", "Weather checked", "Safety plan", ChecklistV2},
	{"safePassInDate", "Safe Pass in date", "Safety plan", ChecklistV2},
	{"slipTripAware", "Slip/trip hazards identified", "Safety plan", ChecklistV2},
	{"wetFloorsCleaned", "Wet floors cleaned", "Safety plan", ChecklistV2},
	{"manualHandlingCert", "Manual handling certificate", "Lifting", ChecklistV2},
	{"heavyLiftingAssistance", "Assistance for heavy lifting", "Lifting", ChecklistV2},
	{"anchorPointsTie", "Tied to anchor points", "Working at heights", ChecklistV2},
	{"ladderFooted", "Ladder footed", "Working at heights", ChecklistV2},
	{"safetySigns", "Safety signs in place", "Working at heights", ChecklistV2},

	{"commWithOthers", "Communicating with others on site", "Working at heights", ChecklistV3},
	{"ladderCheck", "Ladder inspected", "Equipment", ChecklistV3},
	{"sharpEdgesCheck", "Sharp edges checked", "Equipment", ChecklistV3},
	{"scraperBladeCovers", "Scraper blade covers on", "Equipment", ChecklistV3},
	{"hotSurfacesCheck", "Hot surfaces checked", "Equipment", ChecklistV3},
	{"chemicalCourseComplete", "Chemical course complete", "Equipment", ChecklistV3},
	{"chemicalDilutionAware", "Aware of chemical dilution rates", "Equipment", ChecklistV3},
	{"equipmentTidy", "Equipment tidy", "Equipment", ChecklistV3},
	{"laddersPutAway", "Ladders put away", "Equipment", ChecklistV3},
}

var checklistIndex = func() map[string]int {
	idx := make(map[string]int, len(checklistItems))
	for i, item := range checklistItems {
		idx[item.Key] = i
	}
	return idx
}()

// ChecklistKeys returns the keys of the given version in display order.
func ChecklistKeys(version ChecklistVersion) []string {
	keys := make([]string, 0, len(checklistItems))
	for _, item := range checklistItems {
		if item.Since <= version {
			keys = append(keys, item.Key)
		}
	}
	return keys
}

// IsChecklistKey reports whether key belongs to the current checklist version.
func IsChecklistKey(key string) bool {
	i, ok := checklistIndex[key]
	return ok && checklistItems[i].Since <= CurrentChecklistVersion
}

// ChecklistLabel resolves a key to its human label. Unknown keys are returned unchanged.
func ChecklistLabel(key string) string {
	if i, ok := checklistIndex[key]; ok {
		return checklistItems[i].Label
	}
	return key
}

// ChecklistSection returns the form section a key belongs to, or "" for unknown keys.
func ChecklistSection(key string) string {
	if i, ok := checklistIndex[key]; ok {
		return checklistItems[i].Section
	}
	return ""
}

// SafetyChecklist is the fixed set of compliance flags captured at check-in.
// The zero value is a valid checklist with every flag false.
type SafetyChecklist struct {
	flags [len(checklistItems)]bool

	// unknown holds keys read back from storage that no checklist version defines.
	// It is only populated by lenient decoding and is reported, never written.
	unknown map[string]bool
}

// UnknownChecklistKeyError is returned when a caller names a key outside the current version.
type UnknownChecklistKeyError struct {
	Key string
}

func (e *UnknownChecklistKeyError) Error() string {
	return fmt.Sprintf("unknown safety checklist key %q", e.Key)
}

// NewChecklist builds a checklist from caller input. Unknown keys are rejected and
// missing keys default to false.
func NewChecklist(values map[string]bool) (SafetyChecklist, error) {
	var c SafetyChecklist
	for key, v := range values {
		if err := c.Set(key, v); err != nil {
			return SafetyChecklist{}, err
		}
	}
	return c, nil
}

// MigrateChecklist upgrades a stored checklist of any version to the current one.
// Keys added since the stored version default to false; keys no version knows are kept
// aside so reports can still show them.
func MigrateChecklist(raw map[string]bool) SafetyChecklist {
	var c SafetyChecklist
	for key, v := range raw {
		i, ok := checklistIndex[key]
		if !ok {
			if c.unknown == nil {
				c.unknown = make(map[string]bool)
			}
			c.unknown[key] = v
			continue
		}
		c.flags[i] = v
	}
	return c
}

// Set updates a single flag.
func (c *SafetyChecklist) Set(key string, value bool) error {
	if !IsChecklistKey(key) {
		return &UnknownChecklistKeyError{Key: key}
	}
	c.flags[checklistIndex[key]] = value
	return nil
}

// Get returns the value of a flag. Keys outside the catalogue read from the
// values kept aside by MigrateChecklist, which is false unless storage said otherwise.
func (c SafetyChecklist) Get(key string) bool {
	if i, ok := checklistIndex[key]; ok {
		return c.flags[i]
	}
	return c.unknown[key]
}

// CheckedKeys returns the keys set to true in catalogue order, followed by any
// unknown stored keys set to true in lexical order.
func (c SafetyChecklist) CheckedKeys() []string {
	var keys []string
	for i, item := range checklistItems {
		if c.flags[i] {
			keys = append(keys, item.Key)
		}
	}
	var extra []string
	for key, v := range c.unknown {
		if v {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Map returns every current-version key with its value.
func (c SafetyChecklist) Map() map[string]bool {
	m := make(map[string]bool, len(checklistItems))
	for i, item := range checklistItems {
		if item.Since <= CurrentChecklistVersion {
			m[item.Key] = c.flags[i]
		}
	}
	return m
}

func (c SafetyChecklist) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

func (c *SafetyChecklist) UnmarshalJSON(data []byte) error {
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode safety checklist: %w", err)
	}
	*c = MigrateChecklist(raw)
	return nil
}
